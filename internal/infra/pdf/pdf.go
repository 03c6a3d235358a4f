package pdf

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/font"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Fields that do not name a font use DefaultFont.
const (
	DefaultFont     = "Helvetica"
	DefaultFontSize = 12
	fieldPadding    = 2.0
)

// FontAsset is a TrueType font file, Name is the file name (e.g. "Montserrat-Bold.ttf").
type FontAsset struct {
	Name string
	Data []byte
}

// Field is a named form field of the template. Font is either the file name of one of the
// document fonts without extension or the font's PostScript name.
type Field struct {
	Name  string
	Value string
	Font  string
	Size  int
}

type Document struct {
	Template []byte
	Fonts    []FontAsset
	Fields   []Field
}

// Renderer flattens filled certificate forms. Every field value is stamped into the page
// content at the field's position using the field's font, then the form fields are removed.
type Renderer struct {
	mu sync.Mutex
	// sha256 of the font file -> PostScript name it was installed under
	installed map[string]string
}

func NewRenderer() *Renderer {
	// pdfcpu would otherwise write its config and fonts below the user config dir.
	model.ConfigPath = "disable"
	return &Renderer{installed: make(map[string]string)}
}

func newConf() *model.Configuration {
	return model.NewDefaultConfiguration()
}

func (r *Renderer) Render(ctx context.Context, doc Document) ([]byte, error) {
	if len(doc.Template) == 0 {
		return nil, fmt.Errorf("empty template")
	}

	aliases, err := r.installFonts(doc.Fonts)
	if err != nil {
		return nil, err
	}
	fields, err := resolveFonts(doc.Fields, aliases)
	if err != nil {
		return nil, err
	}
	if err = ctx.Err(); err != nil {
		return nil, err
	}

	pdfCtx, err := api.ReadContext(bytes.NewReader(doc.Template), newConf())
	if err != nil {
		return nil, fmt.Errorf("error reading template: %w", err)
	}
	widgets, err := fieldWidgets(pdfCtx)
	if err != nil {
		return nil, fmt.Errorf("error reading template fields: %w", err)
	}

	stamps := make(map[int][]*model.Watermark)
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		w, ok := widgets[f.Name]
		if !ok {
			return nil, fmt.Errorf("template has no field %s", f.Name)
		}
		names = append(names, f.Name)
		if f.Value == "" {
			continue
		}
		wm, err := textStamp(f, w)
		if err != nil {
			return nil, fmt.Errorf("error preparing field %s: %w", f.Name, err)
		}
		stamps[w.page] = append(stamps[w.page], wm)
	}

	var flat bytes.Buffer
	if err = api.RemoveFormFields(bytes.NewReader(doc.Template), &flat, names, newConf()); err != nil {
		return nil, fmt.Errorf("error flattening form: %w", err)
	}
	if len(stamps) == 0 {
		return flat.Bytes(), nil
	}

	var out bytes.Buffer
	if err = api.AddWatermarksSliceMap(bytes.NewReader(flat.Bytes()), &out, stamps, newConf()); err != nil {
		return nil, fmt.Errorf("error writing field values: %w", err)
	}
	return out.Bytes(), nil
}

// installFonts makes the fonts available for embedding and returns the installed font name
// for every file name stem. pdfcpu keeps user fonts in a process wide directory, so installs
// are serialized and each distinct font file is installed once.
func (r *Renderer) installFonts(fonts []FontAsset) (map[string]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	aliases := make(map[string]string, len(fonts))
	if len(fonts) == 0 {
		return aliases, nil
	}

	if font.UserFontDir == "" {
		dir, err := os.MkdirTemp("", "certify-fonts")
		if err != nil {
			return nil, fmt.Errorf("error creating font dir: %w", err)
		}
		font.UserFontDir = dir
	}

	var added int
	for _, f := range fonts {
		if !strings.HasSuffix(strings.ToLower(f.Name), ".ttf") {
			return nil, fmt.Errorf("font %s is not a .ttf file", f.Name)
		}
		key := contentKey(f.Data)
		name, ok := r.installed[key]
		if !ok {
			var err error
			if name, err = installFont(f); err != nil {
				return nil, err
			}
			r.installed[key] = name
			added++
		}
		aliases[fontStem(f.Name)] = name
		aliases[name] = name
	}

	if added > 0 {
		if err := font.LoadUserFonts(); err != nil {
			return nil, fmt.Errorf("error loading fonts: %w", err)
		}
		slog.Info("installed certificate fonts", "count", added)
	}
	return aliases, nil
}

// installFont installs into a scratch dir first, pdfcpu names the installed font after the
// PostScript name found inside the file.
func installFont(f FontAsset) (string, error) {
	stage, err := os.MkdirTemp("", "certify-ttf")
	if err != nil {
		return "", fmt.Errorf("error creating temp dir: %w", err)
	}
	defer func() {
		_ = os.RemoveAll(stage)
	}()

	if err = font.InstallFontFromBytes(stage, f.Name, f.Data); err != nil {
		return "", fmt.Errorf("error installing font %s: %w", f.Name, err)
	}
	entries, err := os.ReadDir(stage)
	if err != nil {
		return "", fmt.Errorf("error installing font %s: %w", f.Name, err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) != ".gob" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(stage, e.Name()))
		if err != nil {
			return "", fmt.Errorf("error installing font %s: %w", f.Name, err)
		}
		if err = os.WriteFile(filepath.Join(font.UserFontDir, e.Name()), data, 0o600); err != nil {
			return "", fmt.Errorf("error installing font %s: %w", f.Name, err)
		}
		return strings.TrimSuffix(e.Name(), ".gob"), nil
	}
	return "", fmt.Errorf("font %s could not be installed", f.Name)
}

func contentKey(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func fontStem(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// resolveFonts maps every field onto an installed font name.
func resolveFonts(fields []Field, aliases map[string]string) ([]Field, error) {
	resolved := make([]Field, 0, len(fields))
	for _, field := range fields {
		if field.Font == "" {
			field.Font = DefaultFont
			if field.Size <= 0 {
				field.Size = DefaultFontSize
			}
		} else {
			name, ok := aliases[field.Font]
			if !ok {
				return nil, fmt.Errorf("field %s uses font %s which was not provided", field.Name, field.Font)
			}
			field.Font = name
		}
		if field.Size <= 0 {
			return nil, fmt.Errorf("field %s has invalid font size %d", field.Name, field.Size)
		}
		resolved = append(resolved, field)
	}
	return resolved, nil
}

type widget struct {
	page  int
	rect  *types.Rectangle
	align types.HAlignment
}

// fieldWidgets finds the first widget of every named field.
func fieldWidgets(ctx *model.Context) (map[string]widget, error) {
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, err
	}

	widgets := make(map[string]widget)
	for p := 1; p <= ctx.PageCount; p++ {
		pageDict, _, _, err := ctx.PageDict(p, false)
		if err != nil {
			return nil, err
		}
		o, found := pageDict.Find("Annots")
		if !found {
			continue
		}
		annots, err := ctx.DereferenceArray(o)
		if err != nil {
			return nil, err
		}
		for _, a := range annots {
			d, err := ctx.DereferenceDict(a)
			if err != nil {
				return nil, err
			}
			if st := d.NameEntry("Subtype"); st == nil || *st != "Widget" {
				continue
			}
			name, parent, err := widgetName(ctx, d)
			if err != nil {
				return nil, err
			}
			if name == "" {
				continue
			}
			if _, ok := widgets[name]; ok {
				continue
			}
			arr := d.ArrayEntry("Rect")
			if len(arr) != 4 {
				return nil, fmt.Errorf("field %s has no position", name)
			}
			rect, err := ctx.RectForArray(arr)
			if err != nil {
				return nil, err
			}
			w := widget{page: p, rect: rect, align: types.AlignLeft}
			if q := d.IntEntry("Q"); q != nil {
				w.align = types.HAlignment(*q)
			} else if q = parent.IntEntry("Q"); q != nil {
				w.align = types.HAlignment(*q)
			}
			widgets[name] = w
		}
	}
	return widgets, nil
}

// widgetName returns the field name of a widget, which lives on the widget itself
// or on its parent field when the field has several widgets.
func widgetName(ctx *model.Context, d types.Dict) (string, types.Dict, error) {
	s, err := d.StringOrHexLiteralEntry("T")
	if err != nil {
		return "", nil, err
	}
	if s != nil {
		return *s, nil, nil
	}
	ir := d.IndirectRefEntry("Parent")
	if ir == nil {
		return "", nil, nil
	}
	parent, err := ctx.DereferenceDict(*ir)
	if err != nil {
		return "", nil, err
	}
	if s, err = parent.StringOrHexLiteralEntry("T"); err != nil || s == nil {
		return "", nil, err
	}
	return *s, parent, nil
}

// textStamp places the value on the field's baseline area honoring its alignment.
func textStamp(f Field, w widget) (*model.Watermark, error) {
	width := font.TextWidth(f.Value, f.Font, f.Size)
	x := w.rect.LL.X + fieldPadding
	switch w.align {
	case types.AlignCenter:
		x = w.rect.LL.X + (w.rect.Width()-width)/2
	case types.AlignRight:
		x = w.rect.UR.X - width - fieldPadding
	}
	y := w.rect.LL.Y + (w.rect.Height()-float64(f.Size))/2

	desc := fmt.Sprintf("fontname:%s, points:%d, position:bl, offset:%.2f %.2f, scalefactor:1 abs, rotation:0, fillcolor:#000000, opacity:1",
		f.Font, f.Size, x, y)
	return api.TextWatermark(f.Value, desc, true, false, types.POINTS)
}
