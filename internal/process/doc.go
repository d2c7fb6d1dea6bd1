// Package process builds event-processing configurations.
//
// A Process owns every registered unit, sequence and path of one
// configuration. Statements mutate it in declaration order:
//
//	p := process.New("RAW", process.WithLoader(bundles))
//	p.Load("Generator_cff")
//	p.Patch("genstepfilter", ir.PSetOf(ir.P("triggerConditions", ir.Strings("generation_step"))))
//	p.Path("generation_step", process.Ref("pgen"))
//	p.SetSchedule("generation_step")
//	snap, err := p.Finalize(process.FinalizeOptions{})
//
// Assembly is two-phase. Declarations record placeholders in a pending list
// and Finalize resolves them, checks placement and ordering rules, flattens
// every path into its module list and returns a hashed ir.ProcessSnapshot.
//
// Every failure is a *ConfigError. Use the Is* helpers to classify it.
//
// A Process is not safe for concurrent use.
package process
