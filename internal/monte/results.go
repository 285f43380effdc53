package monte

// Field is one named value of a results row. Value is a float64, int or bool.
type Field struct {
	Name  string
	Value any
}

// Row is one condition's line in the results summary, in column order.
type Row []Field

// Names returns the column names.
func (r Row) Names() []string {
	out := make([]string, len(r))
	for i, f := range r {
		out[i] = f.Name
	}
	return out
}

// StatsRow renders the standard summary columns for the named properties:
// the mean as "<name>" and, when it must converge, its precision as
// "prec(<name>)". The equilibration and convergence flags come first.
func StatsRow(names []string, stats map[string]Stats, required map[string]float64, converged bool) Row {
	row := Row{{Name: "is_converged", Value: converged}}
	equilibrated := true
	nEquil, nAvg := 0, -1
	for _, n := range names {
		st := stats[n]
		if _, ok := required[n]; !ok && len(required) > 0 {
			continue
		}
		equilibrated = equilibrated && st.Equilibrated
		nEquil = max(nEquil, st.EquilSamples)
		if nAvg < 0 || st.AvgSamples < nAvg {
			nAvg = st.AvgSamples
		}
	}
	nAvg = max(nAvg, 0)
	row = append(row,
		Field{Name: "is_equilibrated", Value: equilibrated},
		Field{Name: "N_equil_samples", Value: nEquil},
		Field{Name: "N_avg_samples", Value: nAvg},
	)
	for _, n := range names {
		st := stats[n]
		row = append(row, Field{Name: "<" + n + ">", Value: st.Mean})
		if _, ok := required[n]; ok {
			row = append(row, Field{Name: "prec(<" + n + ">)", Value: st.Precision})
		}
	}
	return row
}
