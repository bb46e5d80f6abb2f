package calendar

import (
	"testing"
	"time"

	"github.com/meenmo/g2lib/utils"
)

func TestEasterSunday(t *testing.T) {
	t.Parallel()

	cases := map[int]time.Time{
		2023: utils.Date(2023, time.April, 9),
		2024: utils.Date(2024, time.March, 31),
		2026: utils.Date(2026, time.April, 5),
	}
	for year, want := range cases {
		if got := easterSunday(year); !got.Equal(want) {
			t.Fatalf("easter %d: got %s want %s", year, utils.FormatDate(got), utils.FormatDate(want))
		}
	}
}

func TestTargetHolidays(t *testing.T) {
	t.Parallel()

	holidays := []time.Time{
		utils.Date(2024, time.January, 1),
		utils.Date(2024, time.March, 29), // Good Friday
		utils.Date(2024, time.April, 1),  // Easter Monday
		utils.Date(2024, time.May, 1),
		utils.Date(2024, time.December, 26),
	}
	for _, d := range holidays {
		if IsBusinessDay(TARGET, d) {
			t.Fatalf("%s should be a TARGET holiday", utils.FormatDate(d))
		}
	}
	if !IsBusinessDay(TARGET, utils.Date(2024, time.July, 4)) {
		t.Fatalf("July 4th is a TARGET business day")
	}
}

func TestUSDHolidays(t *testing.T) {
	t.Parallel()

	holidays := []time.Time{
		utils.Date(2023, time.September, 4),  // Labor Day
		utils.Date(2023, time.November, 23),  // Thanksgiving
		utils.Date(2024, time.June, 19),      // Juneteenth
		utils.Date(2026, time.July, 3),       // Independence Day observed
		utils.Date(2023, time.December, 25),
	}
	for _, d := range holidays {
		if IsBusinessDay(USD, d) {
			t.Fatalf("%s should be a USD holiday", utils.FormatDate(d))
		}
	}
}

func TestAdjustModifiedFollowing(t *testing.T) {
	t.Parallel()

	// 2024-08-31 is a Saturday; following would roll into September.
	got := Adjust(TARGET, utils.Date(2024, time.August, 31))
	if want := utils.Date(2024, time.August, 30); !got.Equal(want) {
		t.Fatalf("Adjust: got %s want %s", utils.FormatDate(got), utils.FormatDate(want))
	}
}

func TestAdvance(t *testing.T) {
	t.Parallel()

	start := utils.Date(2023, time.August, 30)
	spot := Advance(USD, start, utils.MustPeriod("2D"))
	if want := utils.Date(2023, time.September, 1); !spot.Equal(want) {
		t.Fatalf("spot: got %s want %s", utils.FormatDate(spot), utils.FormatDate(want))
	}
	mat := Advance(TARGET, utils.Date(2023, time.August, 31), utils.MustPeriod("3Y"))
	if want := utils.Date(2026, time.August, 31); !mat.Equal(want) {
		t.Fatalf("3Y: got %s want %s", utils.FormatDate(mat), utils.FormatDate(want))
	}
}
