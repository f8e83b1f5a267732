package app

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/dbehnke/pccc/pkg/bench"
)

// WriteReport prints one line per result
func WriteReport(w io.Writer, results []*bench.Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "BLOCK\tALGORITHM\tPREC\tEB/N0\tTRIALS\tBITS\tERRORS\tBER\tBLER\tDECODE\tTHROUGHPUT")
	for _, r := range results {
		s := r.Scenario
		ebn0 := "noiseless"
		if s.EbN0dB != nil {
			ebn0 = fmt.Sprintf("%.2f dB", *s.EbN0dB)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%.3e\t%.3e\t%s ± %s\t%s\n",
			humanize.Comma(int64(s.BlockSize)),
			s.Algo.Kind,
			s.Precision,
			ebn0,
			humanize.Comma(int64(r.Trials)),
			humanize.Comma(r.Bits),
			humanize.Comma(r.BitErrors),
			r.BER,
			r.BLER,
			r.MeanDecode.Round(time.Microsecond),
			r.StdDecode.Round(time.Microsecond),
			humanize.SIWithDigits(r.Throughput, 2, "bit/s"),
		)
	}
	return tw.Flush()
}
