// Package domain builds intraday profiles of stream level sensor data.
//
// # Data Source
//
// A gauging station exports one CSV file per day. Each row is a single
// reading with at least these columns:
//
//	Site Name, Local(yyyy/MM/dd HH:mm:ss), Sample Value
//
// Files are not guaranteed to be sorted, and a day may contain gaps or
// repeated timestamps. Every file for the analysed period is available
// before the analysis starts.
//
// # Bucket Keys
//
// Readings are grouped by wall-clock minute across days. The bucket key is
// the zero-padded "HH:MM" of the local timestamp:
//
//	"2024/05/01 08:00:59"  →  day 2024-05-01, bucket "08:00"
//
// Seconds are truncated, never rounded, so a sensor that drifts by a few
// seconds per day keeps landing in the same bucket. Timestamps are parsed
// in a fixed layout and treated as local wall-clock time (no zone
// conversion). See [Normalizer].
//
// # Statistics
//
// For each bucket the aggregator pools the values of every day and
// computes count, min, max, mean, sample standard deviation, median and
// the first and third quartiles. Quantiles use linear interpolation
// between order statistics at rank p·(n−1) over the sorted values, which
// is the estimator spreadsheet tools and pandas use by default:
//
//	values 10, 12, 100  →  q1 = 11, median = 12, q3 = 56
//
// # Outliers
//
// Tukey fences are derived per bucket:
//
//	iqr         = q3 − q1
//	lower_fence = q1 − 1.5·iqr
//	upper_fence = q3 + 1.5·iqr
//
// A reading is an outlier only when it lies strictly outside its bucket's
// fences; a value equal to a fence is an inlier. Outliers beyond the outer
// fences (3·iqr) are labelled extreme, the rest mild.
//
// A bucket observed on a single day has iqr 0 and both fences equal to its
// only value. That reading sits on its own fences and is therefore never an
// outlier. Buckets with two readings behave similarly: the fences widen
// with the gap between the two values, so neither can fall outside them.
// Both cases are reported as computed rather than special-cased.
package domain
