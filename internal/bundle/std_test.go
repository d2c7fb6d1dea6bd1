package bundle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/procfg/internal/ir"
	"github.com/roach88/procfg/internal/process"
)

var pgunLoads = []string{
	"Configuration.StandardSequences.Services_cff",
	"SimGeneral.HepPDTESSource.pythiapdt_cfi",
	"FWCore.MessageService.MessageLogger_cfi",
	"Configuration.EventContent.EventContent_cff",
	"SimGeneral.MixingModule.mixNoPU_cfi",
	"Configuration.Geometry.GeometryExtendedPhase2TkBE5DReco_cff",
	"Configuration.Geometry.GeometryExtendedPhase2TkBE5D_cff",
	"Configuration.StandardSequences.MagneticField_38T_PostLS1_cff",
	"Configuration.StandardSequences.Generator_cff",
	"Configuration/StandardSequences/VtxSmearedNoSmear_cff",
	"GeneratorInterface.Core.genFilterSummary_cff",
	"Configuration.StandardSequences.SimIdeal_cff",
	"Configuration.StandardSequences.Digi_cff",
	"Configuration.StandardSequences.SimL1Emulator_cff",
	"Configuration.StandardSequences.DigiToRaw_cff",
	"L1Trigger.TrackTrigger.TrackTrigger_cff",
	"SimTracker.TrackTriggerAssociation.TrackTriggerAssociator_cff",
	"Configuration.StandardSequences.EndOfProcess_cff",
	"Configuration.StandardSequences.FrontierConditions_GlobalTag_cff",
}

func TestStandardBundlesParse(t *testing.T) {
	c := NewCatalog(Standard())
	names, err := c.List()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	for _, name := range names {
		_, err := c.Find(name)
		assert.NoError(t, err, name)
	}
}

func TestStandardBundlesBuildParticleGunProcess(t *testing.T) {
	p := process.New("RAW", process.WithLoader(NewDefaultCatalog()))
	for _, name := range pgunLoads {
		require.NoError(t, p.Load(name), name)
	}
	p.SetMaxEvents(100)

	_, err := p.Register("source", ir.UnitSource, "EmptySource", nil)
	require.NoError(t, err)
	_, err = p.Register("RAWSIMoutput", ir.UnitOutput, "PoolOutputModule", ir.PSetOf(
		ir.U("fileName", ir.String("PGun_example.root")),
	))
	require.NoError(t, err)
	require.NoError(t, p.Copy("RAWSIMoutput", "outputCommands", "RAWSIMEventContent.outputCommands"))
	require.NoError(t, p.Set("genstepfilter", "triggerConditions", ir.Strings("generation_step")))
	require.NoError(t, p.Copy("mix", "digitizers", "theDigitizersValid"))
	for name, seed := range map[string]int64{"generator": 1, "VtxSmeared": 2, "g4SimHits": 3, "mix": 4} {
		require.NoError(t, p.Set("RandomNumberGeneratorService", name+".initialSeed", ir.Int(seed)))
	}
	_, err = p.Register("generator", ir.UnitProducer, "FlatRandomPtGunProducer", ir.PSetOf(
		ir.P("PGunParameters", ir.PSetOf(ir.P("PartID", ir.Ints(-13)))),
	))
	require.NoError(t, err)
	require.NoError(t, p.Append("RAWSIMoutput", "outputCommands", ir.String("keep  *_*_MergedTrackTruth_*")))

	paths := []struct {
		name, seq string
		end       bool
	}{
		{"generation_step", "pgen", false},
		{"simulation_step", "psim", false},
		{"genfiltersummary_step", "genFilterSummary", true},
		{"digitisation_step", "pdigi_valid", false},
		{"L1simulation_step", "SimL1Emulator", false},
		{"digi2raw_step", "DigiToRaw", false},
		{"L1TrackTrigger_step", "TrackTriggerClustersStubs", false},
		{"L1TTAssociator_step", "TrackTriggerAssociatorClustersStubs", false},
		{"endjob_step", "endOfProcess", true},
		{"RAWSIMoutput_step", "RAWSIMoutput", true},
	}
	var schedule []string
	for _, path := range paths {
		if path.end {
			_, err = p.EndPath(path.name, process.Ref(path.seq))
		} else {
			_, err = p.Path(path.name, process.Ref(path.seq))
		}
		require.NoError(t, err, path.name)
		schedule = append(schedule, path.name)
	}
	require.NoError(t, p.SetSchedule(schedule...))
	require.NoError(t, p.GatePaths(process.Ref("generator")))

	snap, err := p.Finalize(process.FinalizeOptions{})
	require.NoError(t, err)

	assert.Equal(t, int64(100), snap.MaxEvents)
	// digitizers_cfi comes from mixNoPU_cfi, the four Sim*_cff from Digi_cff.
	assert.Len(t, snap.Bundles, len(pgunLoads)+5)
	assert.Equal(t, []string{
		"generation_step", "simulation_step", "digitisation_step", "L1simulation_step",
		"digi2raw_step", "L1TrackTrigger_step", "L1TTAssociator_step",
		"genfiltersummary_step", "endjob_step", "RAWSIMoutput_step",
	}, snap.Plan)
	assert.NotEmpty(t, snap.Warnings, "genfiltersummary_step is scheduled before main paths")

	gen, ok := snap.Path("generation_step")
	require.True(t, ok)
	assert.Equal(t, []string{"generator", "randomEngineStateProducer", "VtxSmeared", "genParticles", "genParticlesForJets", "ak5GenJets", "genMetTrue"}, gen.Modules)

	end, ok := snap.Path("RAWSIMoutput_step")
	require.True(t, ok)
	assert.Equal(t, []string{"RAWSIMoutput"}, end.Modules, "end paths are not gated")

	mix, ok := snap.Unit("mix")
	require.True(t, ok)
	_, ok = mix.Params.Lookup("digitizers.mergedtruth")
	assert.True(t, ok)

	out, ok := snap.Unit("RAWSIMoutput")
	require.True(t, ok)
	cmds, _ := out.Params.Lookup("outputCommands")
	require.IsType(t, ir.List{}, cmds)
	l := cmds.(ir.List)
	assert.Equal(t, ir.String("keep  *_*_MergedTrackTruth_*"), l[len(l)-1])
	assert.NotEmpty(t, snap.Hash)
}

func TestStandardSkimFragmentPatchesPixelDigitizer(t *testing.T) {
	p := process.New("RAW", process.WithLoader(NewDefaultCatalog()))
	require.NoError(t, p.Load("Services_cff"))
	require.NoError(t, p.Load("mixNoPU_cfi"))
	require.NoError(t, p.Load("SLHCUpgradeSimulations.Geometry.Digi_skimBarrelEndcap_cff"))

	u, ok := p.Unit("simSiPixelDigis")
	require.True(t, ok)
	for field, want := range map[string]ir.Value{
		"MissCalibrate":        ir.Bool(false),
		"useDB":                ir.Bool(false),
		"NumPixelBarrel":       ir.Int(10),
		"NumPixelEndcap":       ir.Int(10),
		"AddPixelInefficiency": ir.Int(-1),
	} {
		got, _ := u.Params.Get(field)
		assert.Equal(t, want, got, field)
	}

	entries, ok := p.Entries("doAllDigi")
	require.True(t, ok)
	assert.Equal(t, "trDigi", process.FormatEntries(entries))

	_, err := p.Path("digitisation_step", process.Ref("pdigi"))
	require.NoError(t, err)
	snap, err := p.Finalize(process.FinalizeOptions{})
	require.NoError(t, err)
	dig, _ := snap.Path("digitisation_step")
	assert.Equal(t, []string{"randomEngineStateProducer", "mix", "simSiPixelDigis", "simSiStripDigis", "trackingParticles", "addPileupInfo"}, dig.Modules)
}

func TestStandardDigiAndSkimConflict(t *testing.T) {
	p := process.New("RAW", process.WithLoader(NewDefaultCatalog()))
	require.NoError(t, p.Load("Digi_cff"))
	err := p.Load("Digi_skimBarrelEndcap_cff")
	require.Error(t, err)
	assert.True(t, process.IsDuplicateName(err))
}
