package options

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	"github.com/maxgio92/xperfasm/internal/settings"
	"github.com/maxgio92/xperfasm/pkg/events"
	"github.com/maxgio92/xperfasm/pkg/profiler"
	"github.com/maxgio92/xperfasm/pkg/report"
)

// ReportOptions configure what is done with the aggregated samples.
type ReportOptions struct {
	TopN       int
	ReportPath string
	PprofPath  string
	SaveBin    string
	SaveText   string
}

func (o *ReportOptions) AddFlags(flags *pflag.FlagSet) {
	flags.IntVar(&o.TopN, "top", settings.DefaultTopN, "Number of hottest addresses to report per event")
	flags.StringVar(&o.ReportPath, "report-json", "", "Write the report as JSON to this path")
	flags.StringVar(&o.PprofPath, "pprof", "", "Write the samples as a pprof profile to this path")
}

func (o *ReportOptions) AddSaveFlags(flags *pflag.FlagSet) {
	flags.StringVar(&o.SaveBin, "save-bin", "", "Copy the binary trace to this path")
	flags.StringVar(&o.SaveText, "save-text", "", "Copy the text trace to this path")
}

// XperfAsmOptions returns the profiler options saving the traces.
func (o *ReportOptions) XperfAsmOptions() []profiler.XperfAsmOption {
	return []profiler.XperfAsmOption{
		profiler.WithSaveBin(o.SaveBin),
		profiler.WithSaveText(o.SaveText),
	}
}

// Write prints the hot addresses table to w and writes the optional report
// files.
func (o *ReportOptions) Write(w io.Writer, res *events.Events, opts ...report.Option) error {
	r := report.NewReport(append(opts, report.WithEvents(res, o.TopN))...)

	if err := r.WriteTable(w); err != nil {
		return errors.Wrap(err, "failed to print report")
	}

	if o.ReportPath != "" {
		if err := writeFile(o.ReportPath, r.WriteReport); err != nil {
			return errors.Wrap(err, "failed to write report")
		}
	}

	if o.PprofPath != "" && len(res.TracedEvents) > 0 {
		if err := writeFile(o.PprofPath, func(w io.Writer) error {
			return report.WritePprof(w, res, res.TracedEvents[0])
		}); err != nil {
			return errors.Wrap(err, "failed to write pprof profile")
		}
	}

	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}
