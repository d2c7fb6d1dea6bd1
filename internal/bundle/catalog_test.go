package bundle

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/procfg/internal/ir"
	"github.com/roach88/procfg/internal/process"
)

func mapFS(files map[string]string) fstest.MapFS {
	fsys := make(fstest.MapFS, len(files))
	for name, src := range files {
		fsys[name] = &fstest.MapFile{Data: []byte(src)}
	}
	return fsys
}

func TestCatalogBundleName(t *testing.T) {
	c := NewCatalog()
	assert.Equal(t, "Services_cff", c.BundleName("Configuration.StandardSequences.Services_cff"))
	assert.Equal(t, "VtxSmearedNoSmear_cff", c.BundleName("Configuration/StandardSequences/VtxSmearedNoSmear_cff"))
	assert.Equal(t, "Digi_cff", c.BundleName("Digi_cff.hcl"))
	assert.Equal(t, "plain", c.BundleName("plain"))
}

func TestCatalogEarlierSourceShadows(t *testing.T) {
	user := mapFS(map[string]string{
		"Gun.hcl": `unit "gun" {
  kind = "producer"
  type = "UserGun"
}`,
	})
	base := mapFS(map[string]string{
		"Gun.hcl":  `unit "gun" { kind = "producer" }`,
		"Base.hcl": `unit "base" { kind = "service" }`,
	})
	c := NewCatalog(user, base)

	b, err := c.Find("Gun")
	require.NoError(t, err)
	assert.Equal(t, "Gun.hcl", b.Filename)
	assert.Equal(t, "UserGun", b.Statements[0].(*UnitStatement).Type)

	names, err := c.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"Base", "Gun"}, names)
}

func TestCatalogCachesParsedBundles(t *testing.T) {
	c := NewCatalog(mapFS(map[string]string{"A.hcl": `pset "a" {}`}))
	first, err := c.Find("A")
	require.NoError(t, err)
	second, err := c.Find("pkg.A")
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestCatalogNotFound(t *testing.T) {
	c := NewCatalog(mapFS(nil))
	_, err := c.Find("Missing_cff")
	require.Error(t, err)
	assert.True(t, process.IsNotFound(err))

	p := process.New("RAW", process.WithLoader(c))
	err = p.Load("Missing_cff")
	assert.True(t, process.IsNotFound(err))
}

func TestCatalogParseErrorNamesFile(t *testing.T) {
	c := NewCatalog(mapFS(map[string]string{"Bad.hcl": `unit "a" { kind = 3 }`}))
	_, err := c.Find("Bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse bundle Bad")
	assert.Contains(t, err.Error(), "Bad.hcl:1")
}

func TestCatalogLoadAppliesInOrder(t *testing.T) {
	c := NewCatalog(mapFS(map[string]string{
		"Base.hcl": `
unit "simSiPixelDigis" {
  kind = "producer"
  type = "SiPixelDigitizer"
  params = {
    NumPixelBarrel = 3
    useDB          = true
  }
}
unit "simSiStripDigis" {
  kind = "producer"
  type = "SiStripDigitizer"
}
pset "content" {
  params = { outputCommands = ["drop *"] }
}
sequence "trDigi" { expr = "simSiPixelDigis + simSiStripDigis" }
`,
		"Skim.hcl": `
load "pkg.Base" {}
patch "simSiPixelDigis" {
  merge  = { NumPixelBarrel = 10 }
  copy   = { content = "content" }
  append = { "content.outputCommands" = ["keep *_simSiPixelDigis_*_*"] }
}
remove "trDigi" { units = ["simSiStripDigis"] }
`,
	}))

	p := process.New("RAW", process.WithLoader(c))
	require.NoError(t, p.Load("Skim"))
	require.NoError(t, p.Load("Base"), "already loaded through Skim")
	assert.Equal(t, []string{"Base", "Skim"}, p.Bundles())

	u, ok := p.Unit("simSiPixelDigis")
	require.True(t, ok)
	v, _ := u.Params.Get("NumPixelBarrel")
	assert.Equal(t, ir.Int(10), v)
	v, _ = u.Params.Get("useDB")
	assert.Equal(t, ir.Bool(true), v)
	v, _ = u.Params.Lookup("content.outputCommands")
	assert.Equal(t, ir.Strings("drop *", "keep *_simSiPixelDigis_*_*"), v)

	entries, _ := p.Entries("trDigi")
	require.Len(t, entries, 1)
	assert.Equal(t, "simSiPixelDigis", entries[0].Name)
}

func TestCatalogMutualLoadsTerminate(t *testing.T) {
	c := NewCatalog(mapFS(map[string]string{
		"A.hcl": "load \"B\" {}\npset \"a\" {}\n",
		"B.hcl": "load \"A\" {}\npset \"b\" {}\n",
	}))
	p := process.New("RAW", process.WithLoader(c))
	require.NoError(t, p.Load("A"))
	assert.Equal(t, []string{"b", "a"}, p.Units())
}

func TestCatalogDuplicateAcrossBundles(t *testing.T) {
	c := NewCatalog(mapFS(map[string]string{
		"A.hcl": `unit "mix" {
  kind = "producer"
  type = "MixingModule"
}`,
		"B.hcl": `unit "mix" {
  kind = "producer"
  type = "OtherMixer"
}`,
	}))
	p := process.New("RAW", process.WithLoader(c))
	require.NoError(t, p.Load("A"))
	err := p.Load("B")
	require.Error(t, err)
	assert.True(t, process.IsDuplicateName(err))
	assert.Contains(t, err.Error(), "B.hcl:1")
}
