package main

import (
	"bufio"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/askiada/go-relay/internal/intrusion"
	"github.com/askiada/go-relay/pkg/pipeline"
	"github.com/askiada/go-relay/pkg/pipeline/model"
)

var ErrNoAlert = errors.New("--alert or --alerts-file must be set")

func newIntrusionCmd(root *rootFlags) *cobra.Command {
	var (
		alert      string
		alertsFile string
	)

	cmd := &cobra.Command{
		Use:   "intrusion",
		Short: "Analyse alerts and simulate the mitigation",
		RunE: func(cmd *cobra.Command, _ []string) error {
			alerts, err := readAlerts(alert, alertsFile)
			if err != nil {
				return err
			}

			a, err := newApp(root.configPath)
			if err != nil {
				return err
			}
			defer a.close()

			blocker := intrusion.NewBlocker(a.logger)

			pipe, err := a.intrusionPipeline(cmd.Context(), blocker)
			if err != nil {
				return err
			}

			seeds := make([]map[string]any, len(alerts))
			for i, al := range alerts {
				seeds[i] = intrusion.Seed(al)
			}

			results, err := pipeline.RunAll(cmd.Context(), pipe, seeds, a.cfg.Batch.Concurrency)
			if err != nil {
				return err
			}

			a.logger.Info("intrusion runs finished", zap.Int("runs", len(results)), zap.Strings("blocked", blocker.Blocked()))
			a.logSlowest(intrusion.Name)

			var out any = results
			if len(results) == 1 {
				out = results[0]
			}

			err = writeOutput(cmd.OutOrStdout(), root.output, out)
			if err != nil {
				return err
			}

			return firstFailure(results)
		},
	}

	cmd.Flags().StringVar(&alert, "alert", "", "alert text")
	cmd.Flags().StringVar(&alertsFile, "alerts-file", "", "file with one alert per line")
	cmd.MarkFlagsMutuallyExclusive("alert", "alerts-file")

	return cmd
}

func readAlerts(alert, alertsFile string) ([]string, error) {
	if alert != "" {
		return []string{alert}, nil
	}

	if alertsFile == "" {
		return nil, ErrNoAlert
	}

	f, err := os.Open(alertsFile)
	if err != nil {
		return nil, errors.Wrap(err, "unable to open alerts file")
	}
	defer f.Close()

	var alerts []string

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			alerts = append(alerts, line)
		}
	}

	err = scanner.Err()
	if err != nil {
		return nil, errors.Wrap(err, "unable to read alerts file")
	}

	if len(alerts) == 0 {
		return nil, errors.Wrapf(ErrNoAlert, "%s is empty", alertsFile)
	}

	return alerts, nil
}

// firstFailure makes the command fail when a run failed. The results are printed before.
func firstFailure(results []*model.Result) error {
	for _, res := range results {
		if res != nil && !res.Completed() {
			return errors.Errorf("run %s failed: %s", res.RunID, res.Error)
		}
	}

	return nil
}
