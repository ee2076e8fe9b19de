package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/giygas/tpn-api/calculator"
	"github.com/giygas/tpn-api/catalog"
	"github.com/giygas/tpn-api/handlers"
	"github.com/giygas/tpn-api/logging"
	"github.com/giygas/tpn-api/report"
	"github.com/giygas/tpn-api/validation"
)

// errRejected is returned when a mixture breaks a clinical rule. The
// violations have already been printed.
var errRejected = errors.New("calculation rejected")

type calcOptions struct {
	weight  float64
	flow    float64
	volumes []string
	lang    string
	asJSON  bool
}

func calcCmd() *cobra.Command {
	var opts calcOptions

	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Compute doses for a base recipe",
		Example: `  tpn calc --weight 1000 --flow 6 --volume 20%糖液=50
  tpn calc --weight 1200 --flow 5 --volume "10% NaCl=1" --volume 20%糖液=49 --lang en`,
		Args: cobra.NoArgs,
		PreRun: func(cmd *cobra.Command, args []string) {
			logging.InitConsoleLogger(slog.LevelWarn)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCalc(cmd.OutOrStdout(), opts)
		},
	}

	flags := cmd.Flags()
	flags.Float64Var(&opts.weight, "weight", 0, "body weight in grams")
	flags.Float64Var(&opts.flow, "flow", 0, "flow rate in mL/h")
	flags.StringArrayVar(&opts.volumes, "volume", nil, "solution volume as name=mL, repeatable")
	flags.StringVar(&opts.lang, "lang", "ja", "output language (ja or en)")
	flags.BoolVar(&opts.asJSON, "json", false, "print the report as JSON")
	_ = cmd.MarkFlagRequired("weight")
	_ = cmd.MarkFlagRequired("flow")

	return cmd
}

func solutionsCmd() *cobra.Command {
	var (
		lang   string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "solutions",
		Short: "List the solution catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tag, err := report.ParseLanguage(lang)
			if err != nil {
				return err
			}

			solutions := catalog.Default().Solutions()
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), solutions)
			}
			return report.Render(cmd.OutOrStdout(), report.FormatCatalog(solutions, tag))
		},
	}

	cmd.Flags().StringVar(&lang, "lang", "ja", "output language (ja or en)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the catalog as JSON")
	return cmd
}

// parseVolumes turns repeated name=mL flags into a raw volume map. The
// last '=' separates the volume so names may contain one.
func parseVolumes(values []string) (map[string]float64, error) {
	volumes := make(map[string]float64, len(values))
	for _, value := range values {
		i := strings.LastIndex(value, "=")
		if i <= 0 {
			return nil, fmt.Errorf("invalid --volume %q: expected name=mL", value)
		}

		name := strings.TrimSpace(value[:i])
		if name == "" {
			return nil, fmt.Errorf("invalid --volume %q: empty solution name", value)
		}
		if _, dup := volumes[name]; dup {
			return nil, fmt.Errorf("duplicate --volume for %s", name)
		}

		ml, err := strconv.ParseFloat(strings.TrimSpace(value[i+1:]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid --volume %q: %w", value, err)
		}
		volumes[name] = ml
	}
	return volumes, nil
}

func runCalc(w io.Writer, opts calcOptions) error {
	tag, err := report.ParseLanguage(opts.lang)
	if err != nil {
		return err
	}

	raw, err := parseVolumes(opts.volumes)
	if err != nil {
		return err
	}

	c := catalog.Default()
	validator := validation.NewDataValidator(c)
	calc := calculator.New(c)

	patient := calculator.PatientContext{WeightG: opts.weight, FlowRateMLPerHr: opts.flow}
	mixture, err := validator.ResolveMixture(raw)
	err = errors.Join(validator.ValidatePatient(patient), err)
	if err != nil {
		return err
	}

	result, errs := calc.ValidateAndCompute(mixture, patient)
	if len(errs) > 0 {
		localized := report.LocalizeErrors(errs, tag)
		if opts.asJSON {
			if err := writeJSON(w, handlers.ValidationResponse{
				Valid:        false,
				BaseVolumeML: calc.BaseVolume(mixture),
				Errors:       localized,
			}); err != nil {
				return err
			}
		} else if err := report.RenderErrors(w, localized); err != nil {
			return err
		}
		return errRejected
	}

	if opts.asJSON {
		display := report.Format(result, tag)
		return writeJSON(w, handlers.CalculationResponse{
			CalculationID: uuid.NewString(),
			Mixture:       mixture,
			Report:        result,
			Display:       &display,
		})
	}
	return report.Render(w, report.Format(result, tag))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
