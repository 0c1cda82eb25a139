package cli

import (
	"fmt"
	"io"
)

// Version is the current version of merak
const Version = "0.1.0"

// ShowVersion writes the version information to w
func ShowVersion(w io.Writer) {
	fmt.Fprintf(w, "merak version %s\n", Version)
}
