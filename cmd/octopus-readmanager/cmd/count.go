// Copyright ©2024 The Octopus Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mattwherlock/octopus/readio"
	"github.com/mattwherlock/octopus/region"
)

var countSamples []string

// countCmd reports the number of reads overlapping a region, optionally
// restricted to one or more samples.
var countCmd = &cobra.Command{
	Use:   "count [contig] [begin] [end]",
	Short: "Count reads overlapping a region",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		begin, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			return fmt.Errorf("parsing begin %q: %w", args[1], err)
		}
		end, err := strconv.ParseUint(args[2], 10, 32)
		if err != nil {
			return fmt.Errorf("parsing end %q: %w", args[2], err)
		}
		r, err := region.NewGenomicRegion(region.ContigName(args[0]), uint32(begin), uint32(end))
		if err != nil {
			return err
		}

		m, err := newManager(cmd)
		if err != nil {
			return err
		}

		samples := make([]readio.SampleName, len(countSamples))
		for i, s := range countSamples {
			samples[i] = readio.SampleName(s)
		}

		n, err := m.CountReads(r, samples...)
		if err != nil {
			return err
		}
		fmt.Println(n)
		return nil
	},
}

func init() {
	countCmd.Flags().StringSliceVarP(&countSamples, "sample", "s", nil, "restrict to these samples (repeatable, default all)")
}
