package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"clinic/internal/availability"
	"clinic/internal/config"
	"clinic/internal/export"
	"clinic/internal/schedule"
)

var errInvalid = errors.New("availability file has problems")

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <seed.yaml>",
		Short: "Report every problem in a seed file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seed, err := config.LoadSeed(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			problems := 0
			for _, p := range seed.Professionals {
				errs := schedule.Validate(p.Rules, p.Exceptions, p.Config())
				if len(errs) == 0 {
					fmt.Fprintf(out, "%s %s: ok\n", p.ID, p.Name)
					continue
				}
				problems += len(errs)
				fmt.Fprintf(out, "%s %s: %d problem(s)\n", p.ID, p.Name, len(errs))
				for _, e := range errs {
					fmt.Fprintf(out, "  %s\n", e.Error())
				}
			}
			if problems > 0 {
				return fmt.Errorf("%w: %d problem(s)", errInvalid, problems)
			}
			return nil
		},
	}
}

func newConvertCmd() *cobra.Command {
	var to string
	cmd := &cobra.Command{
		Use:   "convert <rules.json|->",
		Short: "Convert availability records between flat and grouped shapes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			shape, err := schedule.DecodeRules(data)
			if err != nil {
				return err
			}

			var encoded []byte
			switch to {
			case "grouped":
				encoded, err = json.MarshalIndent(nonNilGrouped(schedule.ToEditable(shape)), "", "  ")
			case "flat":
				encoded, err = json.MarshalIndent(schedule.Flatten(shape), "", "  ")
			default:
				return fmt.Errorf("unknown --to %q, use flat or grouped", to)
			}
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
			return err
		},
	}
	cmd.Flags().StringVar(&to, "to", "grouped", "target shape: flat or grouped")
	return cmd
}

func newResolveCmd() *cobra.Command {
	var (
		professional string
		fromStr      string
		toStr        string
		slotMinutes  int
	)
	cmd := &cobra.Command{
		Use:   "resolve <seed.yaml>",
		Short: "Print bookable windows of a professional",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seed, err := config.LoadSeed(args[0])
			if err != nil {
				return err
			}
			if professional == "" && len(seed.Professionals) == 1 {
				professional = seed.Professionals[0].ID
			}
			p := seed.Find(professional)
			if p == nil {
				return fmt.Errorf("professional %q not found in %s", professional, args[0])
			}

			from, err := civil.ParseDate(fromStr)
			if err != nil {
				return fmt.Errorf("invalid --from: %w", err)
			}
			to := from.AddDays(6)
			if toStr != "" {
				if to, err = civil.ParseDate(toStr); err != nil {
					return fmt.Errorf("invalid --to: %w", err)
				}
			}

			resolver := availability.NewResolver(zerolog.Ctx(cmd.Context()))
			windows := resolver.Resolve(p.Rules, p.Exceptions, p.Config(), from, to)

			out := cmd.OutOrStdout()
			for _, w := range windows {
				fmt.Fprintf(out, "%s %s  %s-%s  (%s)\n", w.Date, w.Start.Weekday().String()[:3],
					w.Start.Format("15:04"), w.End.Format("15:04"), availability.FormatDuration(w.Duration()))
				if slotMinutes > 0 {
					d := time.Duration(slotMinutes) * time.Minute
					for _, s := range availability.SplitWindows([]availability.BookableWindow{w}, d, 0, time.Time{}) {
						fmt.Fprintf(out, "    %s-%s\n", s.Start.Format("15:04"), s.End.Format("15:04"))
					}
				}
			}
			for _, b := range availability.Blocked(p.Rules, p.Exceptions, from, to) {
				fmt.Fprintf(out, "%s blocked: %s\n", b.Date, b.Reason)
			}
			fmt.Fprintf(out, "total %s in %d window(s)\n",
				availability.FormatDuration(availability.TotalDuration(windows)), len(windows))
			return nil
		},
	}
	cmd.Flags().StringVarP(&professional, "professional", "p", "", "professional id (optional with a single professional)")
	cmd.Flags().StringVar(&fromStr, "from", "", "first date, YYYY-MM-DD")
	cmd.Flags().StringVar(&toStr, "to", "", "last date, YYYY-MM-DD (default from+6 days)")
	cmd.Flags().IntVar(&slotMinutes, "slot", 0, "also list appointment slots of this many minutes")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}

func newExportCmd() *cobra.Command {
	var (
		fromStr string
		toStr   string
		outPath string
	)
	cmd := &cobra.Command{
		Use:   "export <seed.yaml>",
		Short: "Write resolved availability of every professional to an xlsx workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seed, err := config.LoadSeed(args[0])
			if err != nil {
				return err
			}
			from, err := civil.ParseDate(fromStr)
			if err != nil {
				return fmt.Errorf("invalid --from: %w", err)
			}
			to, err := civil.ParseDate(toStr)
			if err != nil {
				return fmt.Errorf("invalid --to: %w", err)
			}

			resolver := availability.NewResolver(zerolog.Ctx(cmd.Context()))
			rows := make([]export.Professional, 0, len(seed.Professionals))
			for _, p := range seed.Professionals {
				doc, err := p.Document()
				if err != nil {
					return err
				}
				rows = append(rows, export.Professional{
					ID:       doc.ProfessionalID,
					Name:     p.Name,
					TimeZone: p.TimeZone,
					Windows:  resolver.Resolve(p.Rules, p.Exceptions, p.Config(), from, to),
					Blocked:  availability.Blocked(p.Rules, p.Exceptions, from, to),
				})
			}

			wb := export.NewWorkbook()
			defer wb.Close()
			if err := wb.Write(rows); err != nil {
				return err
			}
			if err := wb.SaveToFile(outPath); err != nil {
				return fmt.Errorf("save %s: %w", outPath, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d professional(s) to %s\n", len(rows), outPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&fromStr, "from", "", "first date, YYYY-MM-DD")
	cmd.Flags().StringVar(&toStr, "to", "", "last date, YYYY-MM-DD")
	cmd.Flags().StringVarP(&outPath, "out", "o", "availability.xlsx", "output file")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

func nonNilGrouped(g schedule.GroupedRules) schedule.GroupedRules {
	if g == nil {
		return schedule.GroupedRules{}
	}
	return g
}
