package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"selectcms/adapters/tsv"
	"selectcms/internal/errors"
)

func newCombineCmd(a *app) *cobra.Command {
	var filter, windows string

	cmd := &cobra.Command{
		Use:   "combine",
		Short: "Merge a range of window files into one table",
		Long: `Concatenate the raw test scores of windows x..y into one file under
<out>/final_out. The filter picks tests by code, in any order:

  i = iHS   x = XP-EHH   h = iHH   d = dDAF (with DAF)   f = Fst

Windows missing from the range are reported and skipped.

Example: cms combine --filter i:x:d --windows 0-12`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationConfig: configNone},
		RunE: func(cmd *cobra.Command, args []string) error {
			lo, hi, err := tsv.ParseRange(windows)
			if err != nil {
				return errors.ConfigInvalid(fmt.Sprintf("bad --windows: %v", err))
			}
			store := tsv.NewStore(a.outDir, a.logger)
			path, n, err := store.Combine(filter, lo, hi)
			if err != nil {
				return err
			}
			fmt.Printf("Combined %d windows into %s\n", n, path)
			return nil
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "i:x:h:d:f", "Tests to include, colon separated")
	cmd.Flags().StringVar(&windows, "windows", "", "Window numbers to combine as x-y")
	_ = cmd.MarkFlagRequired("windows")

	return cmd
}
