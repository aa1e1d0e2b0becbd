package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/noah-isme/backend-gpa/internal/gpa"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

type options struct {
	policy string
	asJSON bool
}

func (o *options) engine() (gpa.Engine, error) {
	p, err := gpa.ParsePolicy(o.policy)
	if err != nil {
		return gpa.Engine{}, err
	}
	return gpa.Engine{BelowMinimum: p}, nil
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "gpacli",
		Short:         "Convert marks into GPA and CGPA on the 4.0 scale",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)
	rootCmd.PersistentFlags().StringVar(&opts.policy, "policy", "zero", "Below-minimum marks policy (zero or exclude)")
	rootCmd.PersistentFlags().BoolVar(&opts.asJSON, "json", false, "Print results as JSON")

	var marks, creditRange int
	subjectCmd := &cobra.Command{
		Use:   "subject",
		Short: "GPA of a single subject",
		Long: `Compute the GPA of one subject from its marks and credit range.

Examples:
  gpacli subject --marks 24 --range 60
  gpacli subject -m 80 -r 100 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := opts.engine()
			if err != nil {
				return err
			}
			r, err := gpa.ParseCreditRange(creditRange)
			if err != nil {
				return err
			}
			m := marks
			res := e.DescribeSubject(gpa.Subject{Marks: &m, CreditRange: r})
			if opts.asJSON {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			printSubject(cmd.OutOrStdout(), res)
			return nil
		},
	}
	subjectCmd.Flags().IntVarP(&marks, "marks", "m", 0, "Marks obtained")
	subjectCmd.Flags().IntVarP(&creditRange, "range", "r", int(gpa.Range20), "Credit range (20, 40, 60, 80 or 100)")
	_ = subjectCmd.MarkFlagRequired("marks")

	var subjectFlags []string
	semesterCmd := &cobra.Command{
		Use:   "semester",
		Short: "GPA of a semester",
		Long: `Compute a semester GPA from subjects given as [name=]marks/range.
Subjects that cannot be computed are listed and skipped.

Examples:
  gpacli semester -s Maths=80/100 -s Chemistry=36/60
  gpacli semester -s 18/20 -s 30/40 --policy exclude`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := opts.engine()
			if err != nil {
				return err
			}
			subjects := make([]gpa.Subject, 0, len(subjectFlags))
			for _, raw := range subjectFlags {
				s, err := parseSubject(raw)
				if err != nil {
					return err
				}
				subjects = append(subjects, s)
			}
			res := e.DescribeSemester(subjects)
			if opts.asJSON {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			printSemester(cmd.OutOrStdout(), res)
			if res.GPA == nil {
				return fmt.Errorf("%s", gpa.NoValidSubjectsMessage)
			}
			return nil
		},
	}
	semesterCmd.Flags().StringArrayVarP(&subjectFlags, "subject", "s", nil, "Subject as [name=]marks/range (repeatable)")
	_ = semesterCmd.MarkFlagRequired("subject")

	cgpaCmd := &cobra.Command{
		Use:   "cgpa <gpa>...",
		Short: "CGPA from semester GPAs",
		Long: `Average semester GPAs into a CGPA. Values outside 0-4 are rejected.

Example:
  gpacli cgpa 3.5 3.8 4.2`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gpas := make([]float64, 0, len(args))
			for _, a := range args {
				v, err := strconv.ParseFloat(a, 64)
				if err != nil {
					return fmt.Errorf("invalid gpa %q: %w", a, err)
				}
				gpas = append(gpas, v)
			}
			res := gpa.DescribeCGPA(gpas)
			if opts.asJSON {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			printCGPA(cmd.OutOrStdout(), gpas, res)
			return nil
		},
	}

	rangesCmd := &cobra.Command{
		Use:   "ranges",
		Short: "List supported credit ranges",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := gpa.CreditRangesInfo()
			if opts.asJSON {
				return writeJSON(cmd.OutOrStdout(), info)
			}
			printRanges(cmd.OutOrStdout(), info)
			return nil
		},
	}

	rootCmd.AddCommand(subjectCmd, semesterCmd, cgpaCmd, rangesCmd)
	return rootCmd
}

// parseSubject reads "[name=]marks/range".
func parseSubject(raw string) (gpa.Subject, error) {
	var s gpa.Subject
	text := strings.TrimSpace(raw)
	if name, rest, ok := strings.Cut(text, "="); ok {
		s.Name = strings.TrimSpace(name)
		text = rest
	}
	m, r, ok := strings.Cut(text, "/")
	if !ok {
		return s, fmt.Errorf("subject %q: expected marks/range", raw)
	}
	rangeVal, err := strconv.Atoi(strings.TrimSpace(r))
	if err != nil {
		return s, fmt.Errorf("subject %q: invalid range: %w", raw, err)
	}
	if s.CreditRange, err = gpa.ParseCreditRange(rangeVal); err != nil {
		return s, fmt.Errorf("subject %q: %w", raw, err)
	}
	if m = strings.TrimSpace(m); m != "" {
		marks, err := strconv.Atoi(m)
		if err != nil {
			return s, fmt.Errorf("subject %q: invalid marks: %w", raw, err)
		}
		s.Marks = &marks
	}
	return s, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
