package species_test

import (
	"errors"
	"testing"

	"github.com/okian/speciesdex/internal/domain/species"
	. "github.com/smartystreets/goconvey/convey"
)

func TestEditFormValidate(t *testing.T) {
	Convey("Given a complete edit form", t, func() {
		form := species.EditForm{
			CommonName:      "Snow leopard",
			ScientificName:  "Panthera uncia",
			Kingdom:         "Animalia",
			TotalPopulation: "4,080",
			Image:           "https://example.com/leopard.jpg",
			Description:     "Lives at altitude.",
		}

		Convey("When validating", func() {
			patch, errs := form.Validate()

			Convey("Then the patch carries typed values", func() {
				So(errs, ShouldBeEmpty)
				So(patch.CommonName, ShouldEqual, "Snow leopard")
				So(*patch.ScientificName, ShouldEqual, "Panthera uncia")
				So(*patch.TotalPopulation, ShouldEqual, 4080)
				So(*patch.Image, ShouldEqual, "https://example.com/leopard.jpg")
			})
		})
	})

	Convey("Given a form without a common name", t, func() {
		_, errs := species.EditForm{}.Validate()

		Convey("Then it is rejected with the required message", func() {
			So(errs[species.FieldCommonName], ShouldEqual, "Common name is required")
			So(errs.Error(), ShouldContainSubstring, "common_name")
		})
	})

	Convey("Given optional fields left empty", t, func() {
		patch, errs := species.EditForm{CommonName: "Okapi"}.Validate()

		Convey("Then they become null", func() {
			So(errs, ShouldBeEmpty)
			So(patch.ScientificName, ShouldBeNil)
			So(patch.Kingdom, ShouldBeNil)
			So(patch.TotalPopulation, ShouldBeNil)
			So(patch.Image, ShouldBeNil)
			So(patch.Description, ShouldBeNil)
		})
	})

	Convey("Given population text", t, func() {
		pop := func(raw string) *int64 {
			p, errs := species.EditForm{CommonName: "x", TotalPopulation: raw}.Validate()
			So(errs, ShouldBeEmpty)
			return p.TotalPopulation
		}

		Convey("Then comma groups are removed", func() {
			So(*pop("1,234,567"), ShouldEqual, 1234567)
			So(*pop(" 12 "), ShouldEqual, 12)
		})

		Convey("And non-numeric text becomes null", func() {
			So(pop("lots"), ShouldBeNil)
			So(pop("NaN"), ShouldBeNil)
			So(pop(","), ShouldBeNil)
		})

		Convey("And fractional values are rounded", func() {
			So(*pop("2.6"), ShouldEqual, 3)
		})
	})

	Convey("Given an image that is not a URL", t, func() {
		_, errs := species.EditForm{CommonName: "x", Image: "leopard.jpg"}.Validate()

		Convey("Then the image field fails", func() {
			So(errs[species.FieldImage], ShouldEqual, "Invalid url")
			So(errs.Fields(), ShouldResemble, []string{"image"})
		})
	})

	Convey("Given an existing species", t, func() {
		s := species.Species{
			CommonName:      species.Ptr("Okapi"),
			TotalPopulation: species.Ptr(int64(25000)),
		}

		Convey("Then the form is pre-populated from it", func() {
			f := species.FormFrom(s)
			So(f.CommonName, ShouldEqual, "Okapi")
			So(f.TotalPopulation, ShouldEqual, "25000")
			So(f.Image, ShouldEqual, "")
		})

		Convey("And a patch applies onto it", func() {
			p, _ := species.EditForm{CommonName: "Forest giraffe"}.Validate()
			out := p.Apply(s)
			So(*out.CommonName, ShouldEqual, "Forest giraffe")
			So(out.TotalPopulation, ShouldBeNil)
		})
	})
}

func TestDialog(t *testing.T) {
	Convey("Given a closed dialog", t, func() {
		var d species.Dialog
		So(d.State(), ShouldEqual, species.Closed)

		Convey("When it opens and a submission succeeds", func() {
			So(d.Open(), ShouldBeNil)
			So(d.Submit(), ShouldBeNil)
			So(d.Succeed(), ShouldBeNil)

			Convey("Then it is closed again", func() {
				So(d.State(), ShouldEqual, species.Closed)
			})
		})

		Convey("When a submission fails", func() {
			_ = d.Open()
			_ = d.Submit()
			So(d.Fail("Failed to update species: boom"), ShouldBeNil)

			Convey("Then it stays open with the message and allows a retry", func() {
				So(d.State(), ShouldEqual, species.OpenWithError)
				So(d.Err(), ShouldEqual, "Failed to update species: boom")
				So(d.Submit(), ShouldBeNil)
				So(d.Err(), ShouldEqual, "")
			})
		})

		Convey("When events arrive out of order", func() {
			Convey("Then they are rejected", func() {
				So(errors.Is(d.Submit(), species.ErrInvalidTransition), ShouldBeTrue)
				_ = d.Open()
				_ = d.Submit()
				So(errors.Is(d.Open(), species.ErrInvalidTransition), ShouldBeTrue)
				So(errors.Is(d.Close(), species.ErrInvalidTransition), ShouldBeTrue)
				So(d.State(), ShouldEqual, species.Submitting)
			})
		})
	})
}
