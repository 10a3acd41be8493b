// Package nixfmt renders the resolved-attribute-set output in the
// Nix-flavoured syntax the execution engine's consumers expect. It is
// a small, hand-written pretty-printer: no Nix formatting library
// exists anywhere in this codebase's dependency lineage, and the
// output shape is fixed and trivial enough not to need one.
package nixfmt

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cuemby/packforge/pkg/types"
)

// Render produces the top-level attribute set documented for the
// engine's output: a version string, an empty imports list, and a mods
// attribute set keyed by mod name, each value carrying every
// types.ResolvedMod field as a quoted string.
func Render(mcVersion string, mods map[string]types.ResolvedMod) string {
	var b strings.Builder

	b.WriteString("{\n")
	fmt.Fprintf(&b, "  version = %s;\n", quote(mcVersion))
	b.WriteString("  imports = [ ];\n")
	b.WriteString("  mods = {\n")

	names := make([]string, 0, len(mods))
	for name := range mods {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		renderMod(&b, name, mods[name])
	}

	b.WriteString("  };\n")
	b.WriteString("}\n")

	return b.String()
}

func renderMod(b *strings.Builder, name string, m types.ResolvedMod) {
	fmt.Fprintf(b, "    %s = {\n", quote(name))
	fmt.Fprintf(b, "      title = %s;\n", quote(m.Title))
	fmt.Fprintf(b, "      name = %s;\n", quote(m.Name))
	fmt.Fprintf(b, "      side = %s;\n", quote(string(m.Side)))
	fmt.Fprintf(b, "      required = %s;\n", quote(strconv.FormatBool(m.Required)))
	fmt.Fprintf(b, "      default = %s;\n", quote(strconv.FormatBool(m.Default)))
	fmt.Fprintf(b, "      filename = %s;\n", quote(m.Filename))
	fmt.Fprintf(b, "      encoded = %s;\n", quote(m.Encoded))
	fmt.Fprintf(b, "      src = %s;\n", quote(m.Src))
	fmt.Fprintf(b, "      size = %s;\n", quote(strconv.FormatInt(m.Size, 10)))
	fmt.Fprintf(b, "      md5 = %s;\n", quote(m.MD5))
	fmt.Fprintf(b, "      sha256 = %s;\n", quote(m.SHA256))
	b.WriteString("    };\n")
}

// quote renders s as a double-quoted Nix string literal, escaping
// backslashes, double quotes, and the `${` interpolation sequence.
func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, "${", `\${`)
	return `"` + s + `"`
}
