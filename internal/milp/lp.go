package milp

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
)

// WriteLP writes the model in CPLEX LP text format. Double-bounded rows are
// split into _lo/_hi pairs since the format has no native range rows.
func (b *Builder) WriteLP(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "\\ Model %s\n", b.name)
	if b.maximize {
		fmt.Fprintln(bw, "Maximize")
	} else {
		fmt.Fprintln(bw, "Minimize")
	}
	fmt.Fprint(bw, " obj:")
	b.writeExpr(bw, b.obj)
	fmt.Fprintln(bw)

	fmt.Fprintln(bw, "Subject To")
	for _, c := range b.cons {
		loOpen := math.IsInf(c.lower, -1)
		hiOpen := math.IsInf(c.upper, 1)
		switch {
		case c.lower == c.upper:
			fmt.Fprintf(bw, " %s:", c.name)
			b.writeExpr(bw, c.expr)
			fmt.Fprintf(bw, " = %s\n", num(c.lower))
		case !loOpen && !hiOpen:
			fmt.Fprintf(bw, " %s_lo:", c.name)
			b.writeExpr(bw, c.expr)
			fmt.Fprintf(bw, " >= %s\n", num(c.lower))
			fmt.Fprintf(bw, " %s_hi:", c.name)
			b.writeExpr(bw, c.expr)
			fmt.Fprintf(bw, " <= %s\n", num(c.upper))
		case !hiOpen:
			fmt.Fprintf(bw, " %s:", c.name)
			b.writeExpr(bw, c.expr)
			fmt.Fprintf(bw, " <= %s\n", num(c.upper))
		case !loOpen:
			fmt.Fprintf(bw, " %s:", c.name)
			b.writeExpr(bw, c.expr)
			fmt.Fprintf(bw, " >= %s\n", num(c.lower))
		}
	}

	// Bounds for fixed or non-default-bounded variables.
	fmt.Fprintln(bw, "Bounds")
	for _, v := range b.vars {
		switch {
		case v.lower == v.upper:
			fmt.Fprintf(bw, " %s = %s\n", v.name, num(v.lower))
		case v.typ == Binary:
			// default 0/1 bounds are implied by the Binaries section
		case math.IsInf(v.upper, 1) && v.lower == 0:
			// default bounds, nothing to write
		default:
			lo := "-inf"
			if !math.IsInf(v.lower, -1) {
				lo = num(v.lower)
			}
			hi := "+inf"
			if !math.IsInf(v.upper, 1) {
				hi = num(v.upper)
			}
			fmt.Fprintf(bw, " %s <= %s <= %s\n", lo, v.name, hi)
		}
	}

	bins, gens := false, false
	for _, v := range b.vars {
		switch v.typ {
		case Binary:
			bins = true
		case Integer:
			gens = true
		}
	}
	if bins {
		fmt.Fprintln(bw, "Binaries")
		for _, v := range b.vars {
			if v.typ == Binary {
				fmt.Fprintf(bw, " %s\n", v.name)
			}
		}
	}
	if gens {
		fmt.Fprintln(bw, "Generals")
		for _, v := range b.vars {
			if v.typ == Integer {
				fmt.Fprintf(bw, " %s\n", v.name)
			}
		}
	}
	fmt.Fprintln(bw, "End")
	return bw.Flush()
}

// WriteLPFile writes the model to path in LP format.
func (b *Builder) WriteLPFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := b.WriteLP(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (b *Builder) writeExpr(w io.Writer, e *LinearExpr) {
	for _, vc := range e.varCoeffs {
		c := vc.coeff
		if c >= 0 {
			fmt.Fprintf(w, " + %s %s", num(c), b.vars[vc.ind].name)
		} else {
			fmt.Fprintf(w, " - %s %s", num(-c), b.vars[vc.ind].name)
		}
	}
	if e.offset > 0 {
		fmt.Fprintf(w, " + %s", num(e.offset))
	} else if e.offset < 0 {
		fmt.Fprintf(w, " - %s", num(-e.offset))
	}
}

func num(f float64) string {
	return fmt.Sprintf("%g", f)
}
