// Package progress defines the installer's progress-reporting contract
//: an optional sink the installer invokes with
// (percent, message) pairs. It is deliberately not safe for re-entrant
// calls back into the installer; implementations are expected to just
// render the update.
package progress

import "fmt"

// Sink receives progress updates. percent is always in [0, 1].
type Sink interface {
	Report(percent float32, message string)
}

// Nop discards every update; used when the caller supplies no sink.
type Nop struct{}

func (Nop) Report(float32, string) {}

// standInTotalBytes is substituted for total_compressed_size when it is
// zero, so percent computation never divides by zero.
const standInTotalBytes = 200 * 1024 * 1024

// Extraction tracks the running (processed, total) byte counters used to
// derive the per-file percent during the extraction phase.
type Extraction struct {
	Total     uint64
	Processed uint64
}

// Percent reports Processed/Total, substituting standInTotalBytes for a
// zero Total.
func (e *Extraction) Percent() float32 {
	total := e.Total
	if total == 0 {
		total = standInTotalBytes
	}
	return float32(float64(e.Processed) / float64(total))
}

// Message renders the per-file extraction message for path at the
// extraction's current percent.
func (e *Extraction) Message(path string) string {
	return fmt.Sprintf("Extracting %s (%.1f%%)", path, e.Percent()*100)
}
