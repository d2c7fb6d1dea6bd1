// Package bundle loads named batches of unit registrations from HCL files.
//
// A bundle file holds blocks that apply to a process in source order:
//
//	load "Services_cff" {}
//
//	unit "VtxSmeared" {
//	  kind   = "producer"
//	  type   = "GaussEvtVtxGenerator"
//	  params = {
//	    MeanX = 0.0
//	    src   = tag("generator")
//	    Verbosity = untracked(0)
//	  }
//	}
//
//	pset "RAWSIMEventContent" {
//	  params = { outputCommands = ["drop *"] }
//	}
//
//	sequence "VertexSmearing" { expr = "@VtxSmeared" }
//
//	patch "simSiPixelDigis" {
//	  merge  = { NumPixelBarrel = 10 }
//	  copy   = { digitizers = "theDigitizersValid" }
//	  append = { outputCommands = ["keep *_mix_*_*"] }
//	}
//
//	remove "pdigi" { units = ["simCastorDigis"] }
//
// Numbers written with a fraction or exponent are doubles, others are ints.
// Object keys keep their written order. The functions tag, double, int and
// untracked are recognised syntactically; no evaluation context is used.
//
// Catalog resolves bundle names against user directories first and the
// embedded standard library last.
package bundle
