// Copyright ©2024 The Octopus Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import "github.com/mattwherlock/octopus/cmd/octopus-readmanager/cmd"

func main() {
	cmd.Execute()
}
