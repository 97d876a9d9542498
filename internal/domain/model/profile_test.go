package model_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/vivaran/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func validProfile() model.StartupProfile {
	return model.StartupProfile{
		StartupName:   "Acme",
		Domain:        model.DomainTechnology,
		Description:   "Rockets",
		FundingNeeded: "$500,000",
		TeamSize:      "4",
		Stage:         model.StageMVP,
		Location:      "Pune",
	}
}

func TestStartupProfile_Validate(t *testing.T) {
	Convey("Given a startup profile form", t, func() {
		Convey("When every required field is set and website is empty", func() {
			So(validProfile().Validate(), ShouldBeNil)
		})

		Convey("When a required field is blank", func() {
			p := validProfile()
			p.Location = "   "
			err := p.Validate()

			Convey("Then validation names the field", func() {
				So(errors.Is(err, model.ErrMissingField), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "location")
			})
		})

		Convey("When the domain is not one of the fixed set", func() {
			p := validProfile()
			p.Domain = "Space"
			So(errors.Is(p.Validate(), model.ErrInvalidDomain), ShouldBeTrue)
		})

		Convey("When the stage is unknown", func() {
			p := validProfile()
			p.Stage = "Series Z"
			So(errors.Is(p.Validate(), model.ErrInvalidStage), ShouldBeTrue)
		})

		Convey("When the team size is not numeric", func() {
			p := validProfile()
			p.TeamSize = "a few"
			So(errors.Is(p.Validate(), model.ErrInvalidTeamSize), ShouldBeTrue)
		})
	})
}

func TestParseRole(t *testing.T) {
	Convey("Given role strings", t, func() {
		r, err := model.ParseRole(" Startup ")
		So(err, ShouldBeNil)
		So(r, ShouldEqual, model.RoleStartup)

		r, err = model.ParseRole("investor")
		So(err, ShouldBeNil)
		So(r.Valid(), ShouldBeTrue)

		_, err = model.ParseRole("user")
		So(errors.Is(err, model.ErrInvalidRole), ShouldBeTrue)
	})
}

func TestUserRecord_Flatten(t *testing.T) {
	Convey("Given a user record with signup fields", t, func() {
		created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
		rec := model.UserRecord{
			Fields:    map[string]any{"name": "Asha", "email": "spoofed@example.com"},
			UserType:  model.RoleInvestor,
			Email:     "asha@example.com",
			CreatedAt: created,
		}
		flat := rec.Flatten()

		Convey("Then bookkeeping fields override signup fields", func() {
			So(flat["name"], ShouldEqual, "Asha")
			So(flat["email"], ShouldEqual, "asha@example.com")
			So(flat["userType"], ShouldEqual, "investor")
			So(flat["createdAt"], ShouldEqual, "2024-03-01T10:00:00Z")
		})
	})
}

func TestSplitPath(t *testing.T) {
	Convey("Given record paths", t, func() {
		c, k, err := model.SplitPath("startups/u1")
		So(err, ShouldBeNil)
		So(c, ShouldEqual, "startups")
		So(k, ShouldEqual, "u1")

		_, _, err = model.SplitPath("startups")
		So(err, ShouldNotBeNil)
		_, _, err = model.SplitPath("a/b/c")
		So(err, ShouldNotBeNil)
		So(model.Path("investors", "i1"), ShouldEqual, "investors/i1")
	})
}

func TestInvestorProfile_Interested(t *testing.T) {
	Convey("Given an investor interested in two domains", t, func() {
		inv := model.InvestorProfile{InterestedDomains: []string{"Technology", "Finance"}}
		So(inv.Interested(model.DomainFinance), ShouldBeTrue)
		So(inv.Interested(model.DomainHealthcare), ShouldBeFalse)
	})
}
