/*
Copyright © 2021 the NcMagics authors.
This file is part of NcMagics.

NcMagics is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

NcMagics is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with NcMagics.  If not, see <http://www.gnu.org/licenses/>.
*/

// Command ncmagics draws weather maps from NetCDF forecast files.
package main

import (
	"fmt"
	"os"

	"github.com/spatialmodel/ncmagics/ncmagicsutil"
)

func main() {
	if err := ncmagicsutil.Root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
