package cli

// Long describes merak on the root command's help page.
const Long = `Merak - Python package flattening and binary builds

Merak rewrites a Python package so that every module lives directly under
the package root, then optionally compiles the flattened package into
binary extension modules with Cython. A module finder injected into the
package root keeps the original dotted module names importable.

Build Commands:
  cythonize <package> <output>
    Flatten the package, compile it with Cython and copy the result
    to <output>/<package>

Restructuring Commands:
  flatten <package> <output>
    Write the flattened package, with its resources, to <output>

  plan <package>
    Show where every module would go, and any destination conflicts

  watch <package> <output>
    Re-flatten into <output> whenever the package changes

General:
  version
    Show version information

Configuration is read from .merak.toml in the working or home directory,
MERAK_* environment variables (PYTHON_CMD is honoured for --py-cmd) and a
.env file in the working directory. Flags take precedence.`

// Examples lists common invocations.
const Examples = `  # Build a binary package into dist/
  merak cythonize src/mypkg dist

  # Use a different interpreter and overwrite a previous build
  merak cythonize -f --py-cmd "uv run python" src/mypkg dist

  # Flatten without compiling, recording where each module went
  merak flatten --manifest flat.toml src/mypkg build

  # Inspect the layout and the module reference graph
  merak plan --deps --json src/mypkg

  # Keep build/mypkg in sync while editing
  merak watch -v src/mypkg build`
