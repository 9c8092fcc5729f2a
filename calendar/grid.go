/*
grid.go - Month grids for date pickers

PURPOSE:
  A secondary-calendar month laid out as a flat sequence of cells, seven per
  row, with leading blanks so day 1 falls under its weekday column. The grid
  is geometry only; rendering belongs to whoever consumes it.

  Cells:  [0 0 0 0 0 0 1] [2 3 4 5 6 7 8] ... (0 = blank)

  An invalid (year, month) pair yields a grid with no cells rather than an
  error. Callers pick a date from the grid, so there is nothing to recover.
*/
package calendar

import "time"

// MonthGrid is the day layout of one secondary-calendar month.
type MonthGrid struct {
	Year      int
	Month     int
	WeekStart time.Weekday
	Cells     []int
}

// BuildMonthGrid lays out month of year with weekStart as column 0.
func BuildMonthGrid(year, month int, weekStart time.Weekday) MonthGrid {
	grid := MonthGrid{Year: year, Month: month, WeekStart: weekStart}

	first, err := ToCanonical(SecondaryDate{Year: year, Month: month, Day: 1})
	if err != nil {
		return grid
	}

	blanks := WeekdayIndex(first, weekStart)
	length := MonthLength(year, month)

	grid.Cells = make([]int, blanks, blanks+length)
	for day := 1; day <= length; day++ {
		grid.Cells = append(grid.Cells, day)
	}
	return grid
}

// Empty reports whether the grid was built from an invalid month.
func (g MonthGrid) Empty() bool { return len(g.Cells) == 0 }

// Blanks is the number of leading blank cells.
func (g MonthGrid) Blanks() int {
	n := 0
	for n < len(g.Cells) && g.Cells[n] == 0 {
		n++
	}
	return n
}

// DayCount is the number of non-blank cells.
func (g MonthGrid) DayCount() int { return len(g.Cells) - g.Blanks() }

// Weeks splits the cells into rows of seven, padding the last row with blanks.
func (g MonthGrid) Weeks() [][]int {
	var rows [][]int
	for i := 0; i < len(g.Cells); i += 7 {
		row := make([]int, 7)
		copy(row, g.Cells[i:min(i+7, len(g.Cells))])
		rows = append(rows, row)
	}
	return rows
}

// Date returns the secondary date of a non-blank cell value.
func (g MonthGrid) Date(day int) SecondaryDate {
	return SecondaryDate{Year: g.Year, Month: g.Month, Day: day}
}

// Next returns the following month's grid, wrapping month 12 into the next year.
func (g MonthGrid) Next() MonthGrid {
	y, m := AdjacentMonth(g.Year, g.Month, 1)
	return BuildMonthGrid(y, m, g.WeekStart)
}

// Prev returns the preceding month's grid, wrapping month 1 into the previous year.
func (g MonthGrid) Prev() MonthGrid {
	y, m := AdjacentMonth(g.Year, g.Month, -1)
	return BuildMonthGrid(y, m, g.WeekStart)
}

// AdjacentMonth moves (year, month) by delta months.
func AdjacentMonth(year, month, delta int) (int, int) {
	idx := year*12 + (month - 1) + delta
	y := idx / 12
	m := idx % 12
	if m < 0 {
		m += 12
		y--
	}
	return y, m + 1
}
