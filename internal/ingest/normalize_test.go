package ingest

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/okian/speciesdex/internal/domain/animal"
	. "github.com/smartystreets/goconvey/convey"
)

func TestResolveField(t *testing.T) {
	Convey("Given a row with several candidate columns", t, func() {
		row := RawRow{"Animal": "Lion", "name": "Panthera", "speed": "80"}

		Convey("Then the first listed alias wins", func() {
			v, ok := ResolveField(row, NameAliases)
			So(ok, ShouldBeTrue)
			So(v, ShouldEqual, "Panthera")
		})

		Convey("And matching is case-sensitive", func() {
			_, ok := ResolveField(RawRow{"NAME": "Lion"}, NameAliases)
			So(ok, ShouldBeFalse)
		})

		Convey("And a present but empty column still resolves", func() {
			v, ok := ResolveField(RawRow{"diet": ""}, DietAliases)
			So(ok, ShouldBeTrue)
			So(v, ShouldEqual, "")
		})
	})
}

func TestNormalizeRow(t *testing.T) {
	Convey("Given raw rows", t, func() {
		valid := func(name, speed, diet string) RawRow {
			return RawRow{"name": name, "speed": speed, "diet": diet}
		}

		Convey("Then a clean row is accepted with trimmed values", func() {
			rec, ok := NormalizeRow(valid("  Cheetah ", " 120 ", " Carnivore "))
			So(ok, ShouldBeTrue)
			So(rec, ShouldResemble, animal.Record{Name: "Cheetah", Speed: 120, Diet: animal.Carnivore})
		})

		Convey("And rows with a blank name are excluded", func() {
			_, ok := NormalizeRow(valid("   ", "10", "herbivore"))
			So(ok, ShouldBeFalse)
		})

		Convey("And rows with non-positive or non-finite speed are excluded", func() {
			for _, s := range []string{"0", "-3", "abc", "", "  ", "NaN", "Inf", "-Infinity", "1e400"} {
				_, ok := NormalizeRow(valid("X", s, "omnivore"))
				So(ok, ShouldBeFalse)
			}
		})

		Convey("And rows whose diet is outside the enumeration are excluded", func() {
			for _, d := range []string{"", "insectivore", "herb ivore", "Carnivores"} {
				_, ok := NormalizeRow(valid("X", "10", d))
				So(ok, ShouldBeFalse)
			}
		})

		Convey("And rows missing a column are excluded", func() {
			_, ok := NormalizeRow(RawRow{"name": "X", "speed": "10"})
			So(ok, ShouldBeFalse)
			_, ok = NormalizeRow(RawRow{"name": "X", "diet": "omnivore"})
			So(ok, ShouldBeFalse)
			_, ok = NormalizeRow(RawRow{"speed": "10", "diet": "omnivore"})
			So(ok, ShouldBeFalse)
		})
	})
}

func TestParseAndNormalize(t *testing.T) {
	Convey("Given a CSV with alternative column names", t, func() {
		doc := "Animal,Average Speed (km/h),Dietary\n" +
			"Cheetah,120,Carnivore\n" +
			"Sloth,0.24,Herbivore\n" +
			"Bad,abc,Omnivore\n"

		rows, err := Parse(strings.NewReader(doc))
		So(err, ShouldBeNil)
		res := Normalize(rows)

		Convey("Then only the valid rows survive, in input order", func() {
			So(res.Records, ShouldResemble, []animal.Record{
				{Name: "Cheetah", Speed: 120, Diet: animal.Carnivore},
				{Name: "Sloth", Speed: 0.24, Diet: animal.Herbivore},
			})
			So(res.Total, ShouldEqual, 3)
			So(res.Dropped, ShouldEqual, 1)
		})
	})

	Convey("Given a header-only CSV", t, func() {
		rows, err := Parse(strings.NewReader("name,speed,diet\n"))

		Convey("Then the normalized set is empty", func() {
			So(err, ShouldBeNil)
			So(rows, ShouldBeEmpty)
			So(Normalize(rows).Records, ShouldBeEmpty)
		})
	})

	Convey("Given an empty document", t, func() {
		rows, err := Parse(strings.NewReader(""))

		Convey("Then there are no rows and no error", func() {
			So(err, ShouldBeNil)
			So(rows, ShouldBeNil)
		})
	})

	Convey("Given a CSV with a BOM, quoted fields and a short row", t, func() {
		doc := "\xef\xbb\xbfname,speed,diet\n" +
			"\"Horse, wild\",88,herbivore\n" +
			"Stub,10\n"
		rows, err := Parse(strings.NewReader(doc))
		So(err, ShouldBeNil)

		Convey("Then the BOM does not leak into the first column name", func() {
			So(rows[0], ShouldContainKey, "name")
			So(rows[0]["name"], ShouldEqual, "Horse, wild")
		})

		Convey("And the short row carries the missing columns as empty", func() {
			So(rows[1], ShouldContainKey, "diet")
			So(rows[1]["diet"], ShouldEqual, "")
			res := Normalize(rows)
			So(len(res.Records), ShouldEqual, 1)
			So(res.Dropped, ShouldEqual, 1)
		})
	})

	Convey("Given a stray quote inside an unquoted name", t, func() {
		doc := "Animal,Average Speed (km/h),Dietary\n" +
			"Cheetah,120,Carnivore\n" +
			"The \"Roadrunner\",32,Omnivore\n" +
			"Sloth,0.24,Herbivore\n"
		rows, err := Parse(strings.NewReader(doc))

		Convey("Then the quote is kept and no row is lost", func() {
			So(err, ShouldBeNil)
			So(rows, ShouldHaveLength, 3)
			So(rows[1]["Animal"], ShouldEqual, `The "Roadrunner"`)
			res := Normalize(rows)
			So(len(res.Records), ShouldEqual, 3)
			So(res.Dropped, ShouldEqual, 0)
		})
	})

	Convey("Given a short row whose name alias also appears later", t, func() {
		rows, err := Parse(strings.NewReader("speed,diet,Name,name\n50,herbivore,Zebra\n"))
		So(err, ShouldBeNil)

		Convey("Then the missing column resolves to empty and the row is dropped", func() {
			So(rows[0]["name"], ShouldEqual, "")
			res := Normalize(rows)
			So(res.Records, ShouldBeEmpty)
			So(res.Dropped, ShouldEqual, 1)
		})
	})

	Convey("Given a reader that fails", t, func() {
		boom := errors.New("connection reset")

		Convey("When the header cannot be read", func() {
			_, err := Parse(iotest.ErrReader(boom))

			Convey("Then a parse error wraps the cause", func() {
				So(errors.Is(err, ErrParse), ShouldBeTrue)
				So(errors.Is(err, boom), ShouldBeTrue)
			})
		})

		Convey("When a data row cannot be read", func() {
			_, err := Parse(io.MultiReader(strings.NewReader("name,speed,diet\nA,1,"), iotest.ErrReader(boom)))

			Convey("Then a parse error is returned", func() {
				So(errors.Is(err, ErrParse), ShouldBeTrue)
			})
		})
	})

	Convey("Given many rows", t, func() {
		var b strings.Builder
		b.WriteString("name,speed,diet\n")
		for i := 0; i < 50; i++ {
			fmt.Fprintf(&b, "animal-%d,%d,herbivore\n", i, i)
		}
		rows, err := Parse(strings.NewReader(b.String()))
		So(err, ShouldBeNil)

		Convey("Then every accepted row has a non-empty name and positive speed", func() {
			res := Normalize(rows)
			So(len(res.Records), ShouldEqual, 49)
			for _, r := range res.Records {
				So(strings.TrimSpace(r.Name), ShouldNotBeEmpty)
				So(r.Speed, ShouldBeGreaterThan, 0)
			}
		})
	})
}
