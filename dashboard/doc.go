// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package dashboard produces the figures and chart geometry of the console's
landing page.

Placeholder returns fixed sample figures after a simulated load. Live
totals every ward and voter from the backend and groups turnout by ward
number in ranges of GroupSize. BarChart and Doughnut turn a Snapshot into
coordinates the console templates draw as inline SVG.
*/
package dashboard
