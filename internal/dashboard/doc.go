// Package dashboard serves the read-only web view over a day's clean objects.
//
// Pages:
//   - /           assets: coin dropdown, asset row, markets of the coin, summary cards
//   - /exchanges  exchanges: exchange dropdown, exchange row, pie or bar volume chart
//
// JSON equivalents live under /api, and /health reports the loader state.
//
// The Loader reads each clean object the first time a page needs it and
// keeps it until the date changes or Reset is called. A rerun on the same
// date overwrites the clean objects, so a process serving that date must be
// reset to pick them up; `schedule --serve` does this after every run.
package dashboard
