package genes

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testGTF = `##description: test annotation
chr1	HAVANA	gene	11869	14409	.	+	.	gene_id "ENSG00000001.5"; gene_type "protein_coding"; gene_name "GENE_FWD";
chr1	HAVANA	transcript	11869	14409	.	+	.	gene_id "ENSG00000001.5"; gene_type "protein_coding"; gene_name "GENE_FWD";
chr1	HAVANA	gene	20000	25000	.	-	.	gene_id "ENSG00000002.1"; gene_type "protein_coding"; gene_name "GENE_REV";
chr2	HAVANA	gene	5000	6000	.	+	.	gene_id "ENSG00000003.2"; gene_type "lncRNA"; gene_name "LNC_1";
chr2	HAVANA	gene	8000	9000	.	+	.	gene_id "ENSG00000004.7"; gene_type "protein_coding";
`

func writeGTF(t *testing.T, name, content string, gz bool) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	if gz {
		w := gzip.NewWriter(f)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
		require.NoError(t, w.Close())
	} else {
		_, err = f.WriteString(content)
		require.NoError(t, err)
	}
	return path
}

func TestReadGTF(t *testing.T) {
	path := writeGTF(t, "test.gtf", testGTF, false)

	u, err := ReadGTF(path, true)
	require.NoError(t, err)

	// lncRNA dropped, transcript feature ignored
	assert.Equal(t, 3, u.Size())
	assert.Nil(t, u.Lookup("LNC_1"))

	fwd := u.Lookup("GENE_FWD")
	require.NotNil(t, fwd)
	assert.Equal(t, "1", fwd.Chrom)
	assert.Equal(t, int64(11869), fwd.TSS)

	// reverse strand anchors at feature end
	rev := u.Lookup("GENE_REV")
	require.NotNil(t, rev)
	assert.Equal(t, int64(25000), rev.TSS)

	// missing gene_name falls back to versionless gene_id
	byID := u.Lookup("ENSG00000004")
	require.NotNil(t, byID)
	assert.Equal(t, "2", byID.Chrom)
}

func TestReadGTF_AllTypes(t *testing.T) {
	path := writeGTF(t, "test.gtf", testGTF, false)

	u, err := ReadGTF(path, false)
	require.NoError(t, err)
	assert.Equal(t, 4, u.Size())
	assert.NotNil(t, u.Lookup("LNC_1"))
}

func TestReadGTF_Gzip(t *testing.T) {
	path := writeGTF(t, "test.gtf.gz", testGTF, true)

	u, err := ReadGTF(path, true)
	require.NoError(t, err)
	assert.Equal(t, 3, u.Size())
}

func TestReadGTF_MissingFile(t *testing.T) {
	_, err := ReadGTF(filepath.Join(t.TempDir(), "nope.gtf"), true)
	assert.Error(t, err)
}

func TestParseGTFAttributes(t *testing.T) {
	attrs := parseGTFAttributes(`gene_id "ENSG1.2"; gene_type "protein_coding"; level 2; tag "basic";`)
	assert.Equal(t, "ENSG1.2", attrs["gene_id"])
	assert.Equal(t, "protein_coding", attrs["gene_type"])
	assert.Equal(t, "2", attrs["level"])
	assert.Equal(t, "basic", attrs["tag"])
}

func TestStripVersion(t *testing.T) {
	assert.Equal(t, "ENSG00000157764", stripVersion("ENSG00000157764.14"))
	assert.Equal(t, "ENSG00000157764", stripVersion("ENSG00000157764"))
	assert.Equal(t, "", stripVersion(""))
}
