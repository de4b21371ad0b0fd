package service_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/okian/speciesdex/internal/adapters/dataservice"
	service "github.com/okian/speciesdex/internal/app"
	"github.com/okian/speciesdex/internal/domain/species"
	"github.com/okian/speciesdex/internal/ingest"
	"github.com/okian/speciesdex/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(logger.WithOutput(io.Discard)); err != nil {
		panic(err)
	}
}

const sampleCSV = "Animal,Average Speed (km/h),Dietary\n" +
	"Cheetah,120,Carnivore\n" +
	"Sloth,0.24,Herbivore\n" +
	"Bad,abc,Omnivore\n"

// fakeStore records updates and returns canned results.
type fakeStore struct {
	mu      sync.Mutex
	row     *species.Species
	err     error
	updates []species.Patch
}

func (f *fakeStore) List(_ context.Context, _ dataservice.Caller) ([]species.Species, error) {
	if f.row == nil {
		return nil, f.err
	}
	return []species.Species{*f.row}, f.err
}

func (f *fakeStore) Get(_ context.Context, _ dataservice.Caller, _ species.ID) (*species.Species, error) {
	if f.row == nil {
		return nil, dataservice.ErrNotFound
	}
	return f.row, f.err
}

func (f *fakeStore) Update(_ context.Context, _ dataservice.Caller, _ species.ID, p species.Patch) (*species.Species, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, p)
	return f.row, f.err
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "animals.csv")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func newLoader(path string) *ingest.Loader {
	return ingest.NewLoader(ingest.NewSource(path, nil), logger.NewNop())
}

func currentSpecies() species.Species {
	return species.Species{
		ID:         species.NumericID(7),
		CommonName: species.Ptr("Snow leopard"),
		Kingdom:    species.Ptr("Animalia"),
		Author:     species.Ptr("user-1"),
	}
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it starts with an empty snapshot", func() {
			So(svc, ShouldNotBeNil)
			So(svc.Snapshot(), ShouldNotBeNil)
			So(svc.Dataset(), ShouldBeEmpty)
			So(svc.GetStats()["started"], ShouldEqual, false)
			So(svc.GetStats()["topN"], ShouldEqual, 30)
		})

		Convey("Then starting without a loader fails", func() {
			err := svc.Start(context.Background())
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})

		Convey("Then requesting a reload before start is refused", func() {
			So(svc.RequestReload(context.Background(), "manual"), ShouldBeFalse)
		})
	})
}

func TestService_Reload(t *testing.T) {
	Convey("Given a service reading a local CSV", t, func() {
		path := writeCSV(t, sampleCSV)
		svc := service.New(service.WithLoader(newLoader(path)))
		ctx := context.Background()

		Convey("When reloading", func() {
			err := svc.Reload(ctx)

			Convey("Then the ranked snapshot is published", func() {
				So(err, ShouldBeNil)
				snap := svc.Snapshot()
				So(snap.Total, ShouldEqual, 3)
				So(snap.Accepted, ShouldEqual, 2)
				So(snap.Dropped, ShouldEqual, 1)
				So(snap.Source, ShouldEqual, path)
				So(snap.LoadedAt.IsZero(), ShouldBeFalse)
				So(snap.Records.Names(), ShouldResemble, []string{"Cheetah", "Sloth"})
			})

			Convey("And the file later disappears", func() {
				So(os.Remove(path), ShouldBeNil)
				err := svc.Reload(ctx)

				Convey("Then the previous snapshot survives", func() {
					So(errors.Is(err, service.ErrIngest), ShouldBeTrue)
					So(errors.Is(err, ingest.ErrFetch), ShouldBeTrue)
					So(svc.Dataset().Names(), ShouldResemble, []string{"Cheetah", "Sloth"})
				})
			})
		})

		Convey("When the top N is smaller than the dataset", func() {
			svc := service.New(service.WithLoader(newLoader(path)), service.WithTopN(1))
			So(svc.Reload(ctx), ShouldBeNil)

			Convey("Then only the fastest records are kept", func() {
				So(svc.Dataset().Names(), ShouldResemble, []string{"Cheetah"})
				So(svc.Snapshot().Accepted, ShouldEqual, 2)
			})
		})

		Convey("When rendering the charts", func() {
			So(svc.Reload(ctx), ShouldBeNil)
			var svgOut, htmlOut bytes.Buffer

			Convey("Then both renderings mention the records", func() {
				So(svc.RenderChart(&svgOut, 900), ShouldBeNil)
				So(svgOut.String(), ShouldContainSubstring, "Cheetah")
				So(svc.RenderInteractive(&htmlOut), ShouldBeNil)
				So(htmlOut.String(), ShouldContainSubstring, "Cheetah")
			})
		})

		Convey("When rendering before any load", func() {
			var out bytes.Buffer
			err := svc.RenderChart(&out, 900)

			Convey("Then the empty dataset is reported", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestService_StartStop(t *testing.T) {
	Convey("Given a started service", t, func() {
		path := writeCSV(t, sampleCSV)
		svc := service.New(service.WithLoader(newLoader(path)))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("Then the startup reload populates the dataset", func() {
			So(waitFor(func() bool { return len(svc.Dataset()) == 2 }), ShouldBeTrue)
			So(svc.GetStats()["started"], ShouldEqual, true)
		})

		Convey("When starting twice", func() {
			Convey("Then the second start is a no-op", func() {
				So(svc.Start(ctx), ShouldBeNil)
			})
		})

		Convey("When the CSV changes and a reload is requested", func() {
			So(waitFor(func() bool { return len(svc.Dataset()) == 2 }), ShouldBeTrue)
			So(os.WriteFile(path, []byte(sampleCSV+"Falcon,389,Carnivore\n"), 0o600), ShouldBeNil)
			svc.RequestReload(ctx, "manual")

			Convey("Then the worker picks up the new rows", func() {
				So(waitFor(func() bool { return len(svc.Dataset()) == 3 }), ShouldBeTrue)
				So(svc.Dataset()[0].Name, ShouldEqual, "Falcon")
			})
		})

		Convey("When stopping the service", func() {
			svc.Stop()

			Convey("Then it is marked as stopped", func() {
				So(svc.GetStats()["started"], ShouldEqual, false)
				So(svc.RequestReload(ctx, "manual"), ShouldBeFalse)
			})

			Convey("And a late reload is discarded", func() {
				before := svc.Snapshot()
				err := svc.Reload(ctx)
				So(errors.Is(err, service.ErrStopped), ShouldBeTrue)
				So(svc.Snapshot(), ShouldEqual, before)
			})
		})
	})
}

func TestService_UpdateSpecies(t *testing.T) {
	Convey("Given a service backed by a fake store", t, func() {
		store := &fakeStore{}
		svc := service.New(service.WithStore(store))
		ctx := context.Background()
		caller := dataservice.Caller{AccessToken: "token", UserID: "user-1"}
		current := currentSpecies()
		form := species.FormFrom(current)

		Convey("When the common name is missing", func() {
			form.CommonName = ""
			res, err := svc.UpdateSpecies(ctx, caller, current, form)

			Convey("Then field errors come back and nothing is sent", func() {
				So(err, ShouldBeNil)
				So(res.FieldErrors, ShouldContainKey, species.FieldCommonName)
				So(store.updates, ShouldBeEmpty)
			})
		})

		Convey("When the store returns the updated row", func() {
			store.row = &species.Species{
				ID:              species.NumericID(7),
				CommonName:      species.Ptr("Snow leopard"),
				TotalPopulation: species.Ptr(int64(4000)),
			}
			form.TotalPopulation = "4,000"
			res, err := svc.UpdateSpecies(ctx, caller, current, form)

			Convey("Then the merged species keeps the author", func() {
				So(err, ShouldBeNil)
				So(res.FieldErrors, ShouldBeEmpty)
				So(*res.Species.TotalPopulation, ShouldEqual, 4000)
				So(res.Species.AuthorID(), ShouldEqual, "user-1")
				So(*store.updates[0].TotalPopulation, ShouldEqual, 4000)
			})
		})

		Convey("When the update returns no row", func() {
			form.CommonName = "Ghost cat"
			res, err := svc.UpdateSpecies(ctx, caller, current, form)

			Convey("Then the no-row message is returned and the species is unchanged", func() {
				So(errors.Is(err, service.ErrNoRowReturned), ShouldBeTrue)
				So(err.Error(), ShouldEqual, service.MsgNoRowReturned)
				So(res.Species.ID.IsZero(), ShouldBeTrue)
				So(*current.CommonName, ShouldEqual, "Snow leopard")
			})
		})

		Convey("When the data service rejects the update", func() {
			store.err = &dataservice.HTTPError{Op: "update", StatusCode: 403, Message: "permission denied"}
			_, err := svc.UpdateSpecies(ctx, caller, current, form)

			Convey("Then the service message is surfaced", func() {
				So(errors.Is(err, service.ErrUpdateFailed), ShouldBeTrue)
				So(errors.Is(err, dataservice.ErrRequest), ShouldBeTrue)
				So(err.Error(), ShouldEqual, "Failed to update species: permission denied")
			})
		})

		Convey("When the store fails in an unexpected way", func() {
			store.err = dataservice.ErrMultipleRows
			_, err := svc.UpdateSpecies(ctx, caller, current, form)

			Convey("Then the generic message is returned", func() {
				So(errors.Is(err, service.ErrUnexpectedUpdate), ShouldBeTrue)
				So(err.Error(), ShouldEqual, service.MsgUnexpectedUpdate)
			})
		})

		Convey("When the same form token is submitted twice", func() {
			store.row = &species.Species{ID: species.NumericID(7), CommonName: species.Ptr("Snow leopard")}
			form.Token = "form-1"
			_, err := svc.UpdateSpecies(ctx, caller, current, form)
			So(err, ShouldBeNil)
			_, err = svc.UpdateSpecies(ctx, caller, current, form)

			Convey("Then the second submission is rejected", func() {
				So(errors.Is(err, service.ErrDuplicateSubmission), ShouldBeTrue)
				So(store.updates, ShouldHaveLength, 1)
			})
		})

		Convey("When a tokened submission fails", func() {
			form.Token = "form-2"
			_, err := svc.UpdateSpecies(ctx, caller, current, form)
			So(errors.Is(err, service.ErrNoRowReturned), ShouldBeTrue)

			Convey("Then it may be retried", func() {
				store.row = &species.Species{ID: species.NumericID(7), CommonName: species.Ptr("Snow leopard")}
				_, err := svc.UpdateSpecies(ctx, caller, current, form)
				So(err, ShouldBeNil)
				So(store.updates, ShouldHaveLength, 2)
			})
		})
	})

	Convey("Given a service without a store", t, func() {
		svc := service.New()

		Convey("Then species operations report it is not ready", func() {
			_, err := svc.ListSpecies(context.Background(), dataservice.Caller{})
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			_, err = svc.UpdateSpecies(context.Background(), dataservice.Caller{}, currentSpecies(), species.EditForm{CommonName: "x"})
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})
	})
}

func TestService_ListAndGet(t *testing.T) {
	Convey("Given a store holding one species", t, func() {
		row := currentSpecies()
		svc := service.New(service.WithStore(&fakeStore{row: &row}))

		Convey("Then list and get pass through", func() {
			list, err := svc.ListSpecies(context.Background(), dataservice.Caller{})
			So(err, ShouldBeNil)
			So(list, ShouldHaveLength, 1)
			got, err := svc.GetSpecies(context.Background(), dataservice.Caller{}, row.ID)
			So(err, ShouldBeNil)
			So(strings.ToLower(got.Title()), ShouldEqual, "snow leopard")
		})
	})
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}
