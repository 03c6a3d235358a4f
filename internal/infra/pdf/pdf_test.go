package pdf

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/font"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/stretchr/testify/require"
)

const templateJSON = `{
	"paper": "A4L",
	"origin": "LowerLeft",
	"fonts": {
		"input": {"name": "Helvetica", "size": 12}
	},
	"pages": {
		"1": {
			"content": {
				"textfield": [
					{"id": "NAME", "value": "", "pos": [100, 380], "width": 600, "height": 40, "align": "center"},
					{"id": "COURSE", "value": "", "pos": [100, 300], "width": 600, "height": 30},
					{"id": "EXPIRY", "value": "", "pos": [100, 200], "width": 200, "height": 20}
				]
			}
		}
	}
}`

func certificateTemplate(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, api.Create(nil, strings.NewReader(templateJSON), &buf, newConf()))
	return buf.Bytes()
}

func roboto(t *testing.T) FontAsset {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "Roboto-Regular.ttf"))
	require.NoError(t, err)
	return FontAsset{Name: "Roboto-Regular.ttf", Data: data}
}

// streamContents returns all decoded streams of a PDF concatenated.
func streamContents(t *testing.T, pdf []byte) []byte {
	t.Helper()
	ctx, err := api.ReadContext(bytes.NewReader(pdf), newConf())
	require.NoError(t, err)

	var buf bytes.Buffer
	for _, e := range ctx.Table {
		if e == nil {
			continue
		}
		sd, ok := e.Object.(types.StreamDict)
		if !ok {
			continue
		}
		if len(sd.Content) == 0 {
			if err := sd.Decode(); err != nil {
				continue
			}
		}
		buf.Write(sd.Content)
	}
	return buf.Bytes()
}

func TestRender_Flattens_Form_With_Embedded_Fonts(t *testing.T) {
	r := NewRenderer()
	template := certificateTemplate(t)

	fields, err := api.FormFields(bytes.NewReader(template), newConf())
	require.NoError(t, err)
	require.Len(t, fields, 3)

	out, err := r.Render(context.Background(), Document{
		Template: template,
		Fonts:    []FontAsset{roboto(t)},
		Fields: []Field{
			{Name: "NAME", Value: "Jane Doe", Font: "Roboto-Regular", Size: 28},
			{Name: "COURSE", Value: "CPR BASICS", Size: 20},
			{Name: "EXPIRY", Value: ""},
		},
	})
	require.NoError(t, err)

	info, err := api.PDFInfo(bytes.NewReader(out), "certificate.pdf", nil, true, newConf())
	require.NoError(t, err)
	require.False(t, info.Form, "form fields must be removed")

	var embedded bool
	for _, f := range info.Fonts {
		if f.Name == "Roboto-Regular" && f.Embedded {
			embedded = true
		}
	}
	require.True(t, embedded, "fonts: %+v", info.Fonts)

	require.Contains(t, string(streamContents(t, out)), "(CPR BASICS) Tj")
}

func TestRender_Rejects_Unknown_Field(t *testing.T) {
	r := NewRenderer()
	_, err := r.Render(context.Background(), Document{
		Template: certificateTemplate(t),
		Fields:   []Field{{Name: "SIGNATURE", Value: "x"}},
	})
	require.ErrorContains(t, err, "no field SIGNATURE")
}

func TestRender_Rejects_Empty_Template(t *testing.T) {
	_, err := NewRenderer().Render(context.Background(), Document{})
	require.ErrorContains(t, err, "empty template")
}

func TestInstallFonts_Rejects_Non_TrueType(t *testing.T) {
	_, err := NewRenderer().installFonts([]FontAsset{{Name: "font.otf", Data: []byte("x")}})
	require.ErrorContains(t, err, "not a .ttf")
}

func TestInstallFonts_Uses_PostScript_Name(t *testing.T) {
	r := NewRenderer()
	asset := roboto(t)
	asset.Name = "fonts/certificate-name.ttf"

	aliases, err := r.installFonts([]FontAsset{asset})
	require.NoError(t, err)
	require.Equal(t, "Roboto-Regular", aliases["certificate-name"])
	require.Equal(t, "Roboto-Regular", aliases["Roboto-Regular"])
	require.True(t, font.IsUserFont("Roboto-Regular"))
}

func TestInstallFonts_Keys_Cache_On_Content(t *testing.T) {
	r := NewRenderer()
	asset := roboto(t)

	_, err := r.installFonts([]FontAsset{asset})
	require.NoError(t, err)
	require.Len(t, r.installed, 1)

	// same bytes under another name are not installed again
	renamed := FontAsset{Name: "Other.ttf", Data: asset.Data}
	_, err = r.installFonts([]FontAsset{renamed})
	require.NoError(t, err)
	require.Len(t, r.installed, 1)

	// same name with different bytes is a new font
	changed := FontAsset{Name: asset.Name, Data: []byte("not a font")}
	_, err = r.installFonts([]FontAsset{changed})
	require.Error(t, err)
	require.NotContains(t, r.installed, contentKey(changed.Data))
}

func TestResolveFonts(t *testing.T) {
	aliases := map[string]string{"Montserrat-Bold": "Montserrat-Bold"}

	fields, err := resolveFonts([]Field{
		{Name: "COURSE", Font: "Montserrat-Bold", Size: 20},
		{Name: "ISSUE"},
	}, aliases)
	require.NoError(t, err)
	require.Equal(t, "Montserrat-Bold", fields[0].Font)
	require.Equal(t, DefaultFont, fields[1].Font)
	require.Equal(t, DefaultFontSize, fields[1].Size)

	_, err = resolveFonts([]Field{{Name: "NAME", Font: "GreatVibes-Regular", Size: 36}}, aliases)
	require.ErrorContains(t, err, "GreatVibes-Regular")

	_, err = resolveFonts([]Field{{Name: "COURSE", Font: "Montserrat-Bold"}}, aliases)
	require.ErrorContains(t, err, "invalid font size")
}
