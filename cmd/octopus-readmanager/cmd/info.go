// Copyright ©2024 The Octopus Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// infoCmd summarizes the configured file set: how many files and samples
// the manager found, and their names.
var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Report the files and samples the manager knows about",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newManager(cmd)
		if err != nil {
			return err
		}
		fmt.Printf("files:   %d\n", m.NumFiles())
		fmt.Printf("samples: %d\n", m.NumSamples())
		for _, s := range m.Samples() {
			fmt.Printf("  - %s\n", s)
		}
		return nil
	},
}
