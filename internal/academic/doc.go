// Package academic validates enrollment tables and derives per-date
// regression features from the academic calendar.
//
// Week-of-term numbering restarts on the Monday of the first class day of
// every new term. A configured continuation (spring into summer, autumn into
// winter) keeps the running anchor, but only when the second term directly
// follows the first in the calendar. Any row of a third term code between
// them, such as a winter break coded AUTVAC, resets the count to week 1.
//
// The last-week flag uses a single week number for every term unless
// per-term overrides are configured.
package academic
