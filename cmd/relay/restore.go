package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/askiada/go-relay/internal/restoration"
	"github.com/askiada/go-relay/pkg/pipeline/model"
)

func newRestoreCmd(root *rootFlags) *cobra.Command {
	var (
		imagePath string
		level     string
		years     int
	)

	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Identify, restore and date an artifact from its picture",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(root.configPath)
			if err != nil {
				return err
			}
			defer a.close()

			if !cmd.Flags().Changed("level") {
				level = a.cfg.Restoration.Level
			}

			if !cmd.Flags().Changed("years") {
				years = a.cfg.Restoration.Years
			}

			img, err := os.ReadFile(imagePath)
			if err != nil {
				return errors.Wrap(err, "unable to read image")
			}

			seed, err := restoration.Seed(img, level, years)
			if err != nil {
				return err
			}

			pipe, err := a.restorationPipeline(cmd.Context())
			if err != nil {
				return err
			}

			res, _ := pipe.Run(cmd.Context(), seed)
			a.logSlowest(restoration.Name)

			err = writeOutput(cmd.OutOrStdout(), root.output, withoutImages(res))
			if err != nil {
				return err
			}

			return firstFailure([]*model.Result{res})
		},
	}

	cmd.Flags().StringVar(&imagePath, "image", "", "path to the picture of the artifact")
	cmd.Flags().StringVar(&level, "level", restoration.LevelMedium, "restoration level: light, medium or heavy")
	cmd.Flags().IntVar(&years, "years", 10, "prediction span in years (1-100)")
	_ = cmd.MarkFlagRequired("image")

	return cmd
}

// withoutImages replaces the image payloads of the state by their size, so that the
// result stays readable on a terminal.
func withoutImages(res *model.Result) *model.Result {
	out := *res
	out.State = make(map[string]any, len(res.State))

	for k, v := range res.State {
		switch val := v.(type) {
		case []byte:
			out.State[k] = map[string]int{"bytes": len(val)}
		case restoration.Restoration:
			val.Image = nil
			out.State[k] = val
		default:
			out.State[k] = v
		}
	}

	return &out
}
