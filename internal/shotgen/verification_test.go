package shotgen

import (
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

type row = struct {
	Player     string `json:"playerNameI"`
	GameNumber int    `json:"game_number"`
}

func served(players []string, sliderMax int, rows ...row) specResponse {
	var s specResponse
	s.SliderMax = sliderMax
	s.PlayerParam.Options = players
	if len(players) > 0 {
		s.PlayerParam.Default = players[0]
	}
	s.Shots.Rows = rows
	return s
}

func TestCheckSpec(t *testing.T) {
	Convey("Given a generated season of 45 games for two players", t, func() {
		players := Players(2)

		Convey("A faithful spec passes", func() {
			spec := served(players, 6, row{players[0], 1}, row{players[0], 45}, row{players[1], 45})
			So(checkSpec(spec, players, 45, true), ShouldBeNil)
		})

		Convey("A wrong player domain fails", func() {
			spec := served(players[:1], 6)
			So(errors.Is(checkSpec(spec, players, 45, true), ErrVerification), ShouldBeTrue)
		})

		Convey("A wrong slider bound fails", func() {
			spec := served(players, 1, row{players[0], 45}, row{players[1], 45})
			So(errors.Is(checkSpec(spec, players, 45, true), ErrVerification), ShouldBeTrue)
		})

		Convey("Missing games fail", func() {
			spec := served(players, 6, row{players[0], 45}, row{players[1], 44})
			So(errors.Is(checkSpec(spec, players, 45, true), ErrVerification), ShouldBeTrue)
		})

		Convey("Truncated seasons only check the player domain", func() {
			spec := served(players, 1)
			So(checkSpec(spec, players, 45, false), ShouldBeNil)
		})
	})
}

func TestSeasonOpening(t *testing.T) {
	Convey("Season labels map to their opening night", t, func() {
		got, err := seasonOpening("2023-24")
		So(err, ShouldBeNil)
		So(got, ShouldEqual, time.Date(2023, time.October, 24, 19, 30, 0, 0, time.UTC))

		_, err = seasonOpening("23-24")
		So(errors.Is(err, ErrInvalidConfig), ShouldBeTrue)
		So(expectedSliderMax(45), ShouldEqual, 6)
		So(expectedSliderMax(12), ShouldEqual, 1)
	})
}
