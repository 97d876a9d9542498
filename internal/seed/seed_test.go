package seed

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/vivaran/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type recorder struct {
	paths  []string
	values map[string][]byte
	err    error
}

func (r *recorder) WriteRecord(_ context.Context, path string, v any) error {
	if r.err != nil {
		return r.err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if r.values == nil {
		r.values = map[string][]byte{}
	}
	r.paths = append(r.paths, path)
	r.values[path] = raw
	return nil
}

const sample = `
investors:
  - id: northstar
    name: Northstar Ventures
    email: deals@northstar.example
    interestedDomains: [Technology, Finance]
  - id: carefund
    name: " Care Fund "
    interestedDomains: [Healthcare]
`

func TestParse(t *testing.T) {
	Convey("Given a seed document", t, func() {
		Convey("When it is well formed", func() {
			got, err := Parse(strings.NewReader(sample))

			Convey("Then investors come back in file order", func() {
				So(err, ShouldBeNil)
				So(len(got), ShouldEqual, 2)
				So(got[0].ID, ShouldEqual, "northstar")
				So(got[0].InterestedDomains, ShouldResemble, []string{"Technology", "Finance"})
				So(got[1].Name, ShouldEqual, "Care Fund")
			})
		})

		Convey("When it is empty", func() {
			got, err := Parse(strings.NewReader(""))
			So(err, ShouldBeNil)
			So(got, ShouldBeEmpty)
		})

		Convey("When a domain is unknown", func() {
			_, err := Parse(strings.NewReader("investors:\n  - id: x\n    name: X\n    interestedDomains: [Space]\n"))
			So(errors.Is(err, ErrInvalidInvestor), ShouldBeTrue)
			So(errors.Is(err, model.ErrInvalidDomain), ShouldBeTrue)
		})

		Convey("When an id would break the record path", func() {
			_, err := Parse(strings.NewReader("investors:\n  - id: a/b\n    name: X\n"))
			So(errors.Is(err, ErrInvalidInvestor), ShouldBeTrue)
		})

		Convey("When an id repeats", func() {
			_, err := Parse(strings.NewReader("investors:\n  - id: a\n    name: A\n  - id: a\n    name: B\n"))
			So(errors.Is(err, ErrInvalidInvestor), ShouldBeTrue)
		})

		Convey("When a field is misspelled", func() {
			_, err := Parse(strings.NewReader("investors:\n  - id: a\n    nmae: A\n"))
			So(errors.Is(err, ErrSeedFile), ShouldBeTrue)
		})
	})
}

func TestApply(t *testing.T) {
	Convey("Given a seed file on disk", t, func() {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "investors.yaml")
		So(os.WriteFile(path, []byte(sample), 0o600), ShouldBeNil)

		investors, err := LoadFile(path)
		So(err, ShouldBeNil)

		Convey("When it is applied", func() {
			rec := &recorder{}
			n, err := Apply(ctx, rec, investors, nil)

			Convey("Then each investor is written under its id", func() {
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 2)
				So(rec.paths, ShouldResemble, []string{"investors/northstar", "investors/carefund"})
				var stored model.InvestorProfile
				So(json.Unmarshal(rec.values["investors/northstar"], &stored), ShouldBeNil)
				So(stored.Email, ShouldEqual, "deals@northstar.example")
			})
		})

		Convey("When the database refuses a write", func() {
			n, err := Apply(ctx, &recorder{err: errors.New("closed")}, investors, nil)
			So(err, ShouldNotBeNil)
			So(n, ShouldEqual, 0)
		})

		Convey("When the file does not exist", func() {
			_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
			So(errors.Is(err, ErrSeedFile), ShouldBeTrue)
		})
	})
}
