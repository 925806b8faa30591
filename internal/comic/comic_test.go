package comic

import (
	"bytes"
	"image"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cedricziel/readwhere/internal/archive"
	"github.com/cedricziel/readwhere/internal/errors"
	"github.com/cedricziel/readwhere/internal/sortutil"
)

const sampleComicInfo = `<?xml version="1.0" encoding="utf-8"?>
<ComicInfo>
  <Title>The Long Night</Title>
  <Series>Nightwatch</Series>
  <Number>12</Number>
  <Volume>2</Volume>
  <Summary>Things happen at night.</Summary>
  <Publisher>Darkhouse</Publisher>
  <Writer>A. Writer</Writer>
  <Genre>Horror, Mystery</Genre>
  <Tags>noir, award-winner</Tags>
  <Characters>Iris, The Warden</Characters>
  <LanguageISO>en</LanguageISO>
  <Year>2019</Year><Month>4</Month><Day>17</Day>
  <Manga>YesAndRightToLeft</Manga>
  <BlackAndWhite>Yes</BlackAndWhite>
  <Pages>
    <Page Image="0" Type="FrontCover" ImageWidth="600" ImageHeight="900"/>
    <Page Image="1" Type="Advertisement"/>
    <Page Image="2" DoublePage="true" Bookmark="Chapter 1"/>
  </Pages>
</ComicInfo>`

const sampleCoMet = `<?xml version="1.0"?>
<comet xmlns="http://www.denvog.com/comet/">
  <title>Fallback Title</title>
  <series>Nightwatch</series>
  <issue>12</issue>
  <volume>2</volume>
  <description>Simple description.</description>
  <publisher>Darkhouse</publisher>
  <writer>B. Writer</writer>
  <date>2019-04-17</date>
  <genre>Horror</genre>
  <genre>Crime</genre>
  <character>Iris</character>
  <language>de</language>
  <readingDirection>rtl</readingDirection>
</comet>`

func TestParseComicInfo(t *testing.T) {
	ci, err := ParseComicInfo([]byte(sampleComicInfo))
	require.NoError(t, err)

	assert.Equal(t, "The Long Night", ci.Title)
	assert.Equal(t, "12", ci.Number)
	assert.Equal(t, 2, ci.Volume)
	assert.True(t, ci.IsManga())
	assert.True(t, ci.IsRightToLeft())
	assert.True(t, ci.IsBlackAndWhite())
	require.Len(t, ci.Pages, 3)
	assert.Equal(t, "FrontCover", ci.Pages[0].Type)
	assert.True(t, ci.Pages[2].DoublePage)
}

func TestParseComicInfoLegacyCharset(t *testing.T) {
	// "Café" with an ISO-8859-1 encoded é byte.
	doc := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>" +
		"<ComicInfo><Title>Caf\xe9</Title></ComicInfo>"
	ci, err := ParseComicInfo([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "Café", ci.Title)
}

func TestParseComicInfoGarbage(t *testing.T) {
	_, err := ParseComicInfo([]byte("no xml here"))
	require.Error(t, err)
	assert.Equal(t, errors.KindFormat, errors.KindOf(err))
}

func TestParseCoMet(t *testing.T) {
	cm, err := ParseCoMet([]byte(sampleCoMet))
	require.NoError(t, err)
	assert.Equal(t, "Fallback Title", cm.Title)
	assert.Equal(t, []string{"Horror", "Crime"}, cm.Genres)
	assert.True(t, cm.IsRightToLeft())
}

// testContainer is an in-memory Container for metadata tests.
type testContainer struct {
	files map[string][]byte // path -> bytes
}

func (c *testContainer) Entries() []archive.Entry {
	out := make([]archive.Entry, 0, len(c.files))
	for p, data := range c.files {
		out = append(out, archive.Entry{Path: p, Size: int64(len(data))})
	}
	return out
}

func (c *testContainer) ImagePaths() []string {
	var out []string
	for p := range c.files {
		switch {
		case strings.HasSuffix(p, ".jpg"), strings.HasSuffix(p, ".png"):
			out = append(out, p)
		}
	}
	sortutil.SortNatural(out)
	return out
}

func (c *testContainer) ReadEntry(p string) ([]byte, error) {
	for name, data := range c.files {
		if strings.EqualFold(name, p) {
			return data, nil
		}
	}
	return nil, errors.Newf(errors.KindEntryNotFound, "entry %q not found", p)
}

func (c *testContainer) HasFile(name string) bool {
	_, err := c.ReadFile(name)
	return err == nil
}

func (c *testContainer) ReadFile(name string) ([]byte, error) {
	for p, data := range c.files {
		parts := strings.Split(strings.ReplaceAll(p, "\\", "/"), "/")
		if strings.EqualFold(parts[len(parts)-1], name) {
			return data, nil
		}
	}
	return nil, errors.Newf(errors.KindEntryNotFound, "file %q not found", name)
}

func (c *testContainer) Close() error { return nil }

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func TestBuildBookPrecedence(t *testing.T) {
	page := []byte("fake page bytes")
	tests := []struct {
		name       string
		files      map[string][]byte
		wantSource MetadataSource
		wantTitle  string
	}{
		{
			name: "both schemas parse, comicinfo canonical",
			files: map[string][]byte{
				"p1.jpg": page, "ComicInfo.xml": []byte(sampleComicInfo), "CoMet.xml": []byte(sampleCoMet),
			},
			wantSource: SourceComicInfo,
			wantTitle:  "The Long Night",
		},
		{
			name: "only comet parses, comet canonical",
			files: map[string][]byte{
				"p1.jpg": page, "ComicInfo.xml": []byte("<broken"), "CoMet.xml": []byte(sampleCoMet),
			},
			wantSource: SourceCoMet,
			wantTitle:  "Fallback Title",
		},
		{
			name: "neither parses, source none",
			files: map[string][]byte{
				"p1.jpg": page, "ComicInfo.xml": []byte("<broken"), "CoMet.xml": []byte("also broken"),
			},
			wantSource: SourceNone,
			wantTitle:  "my archive",
		},
		{
			name:       "no metadata files at all",
			files:      map[string][]byte{"p1.jpg": page},
			wantSource: SourceNone,
			wantTitle:  "my archive",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &testContainer{files: tt.files}
			book := BuildBook(c, BuildOptions{FallbackTitle: "my archive"})
			assert.Equal(t, tt.wantSource, book.MetadataSource)
			assert.Equal(t, tt.wantTitle, book.DisplayTitle)
		})
	}
}

func TestBookGettersFallThrough(t *testing.T) {
	c := &testContainer{files: map[string][]byte{
		"p1.jpg":        []byte("x"),
		"ComicInfo.xml": []byte(`<ComicInfo><Title>T</Title></ComicInfo>`),
		"CoMet.xml":     []byte(sampleCoMet),
	}}
	book := BuildBook(c, BuildOptions{})

	// Canonical ComicInfo has no genre/characters/language, so the
	// secondary CoMet document supplies them.
	assert.Equal(t, SourceComicInfo, book.MetadataSource)
	assert.Equal(t, []string{"Horror", "Crime"}, book.Genres())
	assert.Equal(t, []string{"Iris"}, book.Characters())
	assert.Equal(t, "de", book.Language())

	// No source at all falls back to defaults.
	empty := BuildBook(&testContainer{files: map[string][]byte{"p1.jpg": []byte("x")}}, BuildOptions{})
	assert.Equal(t, "Unknown", empty.Language())
	assert.Nil(t, empty.Genres())
}

func TestBuildPages(t *testing.T) {
	wide := pngBytes(t, 30, 10)
	tall := pngBytes(t, 10, 30)
	c := &testContainer{files: map[string][]byte{
		"b.png": tall,
		"a.png": wide,
	}}

	pages := BuildPages(c, PageOptions{ProbeDimensions: true})
	require.Len(t, pages, 2)

	assert.Equal(t, 0, pages[0].Index)
	assert.Equal(t, "a.png", pages[0].Filename)
	assert.Equal(t, PageFrontCover, pages[0].Type)
	assert.Equal(t, "image/png", pages[0].MediaType)
	assert.Equal(t, 30, pages[0].Width)
	assert.True(t, pages[0].IsDoublePage, "wide page should flag as double page")

	assert.Equal(t, PageStory, pages[1].Type)
	assert.False(t, pages[1].IsDoublePage)
}

func TestApplyPageMetadata(t *testing.T) {
	pages := []Page{
		{Index: 0, Filename: "a.jpg", Type: PageFrontCover},
		{Index: 1, Filename: "b.jpg", Type: PageStory},
		{Index: 2, Filename: "c.jpg", Type: PageStory},
	}
	out := ApplyPageMetadata(pages, []ComicInfoPage{
		{Image: 1, Type: "Advertisement", ImageWidth: 100, ImageHeight: 200},
		{Image: 2, Bookmark: "Chapter 1", DoublePage: true},
		{Image: 99, Type: "BackCover"}, // out of range, dropped
	})

	assert.Equal(t, PageFrontCover, out[0].Type, "unmatched page unchanged")
	assert.Equal(t, PageAdvertisement, out[1].Type)
	assert.Equal(t, 100, out[1].Width)
	assert.Equal(t, "Chapter 1", out[2].BookmarkLabel)
	assert.True(t, out[2].IsDoublePage)

	// Source slice is untouched.
	assert.Equal(t, PageStory, pages[1].Type)
}

func TestBookClone(t *testing.T) {
	c := &testContainer{files: map[string][]byte{
		"p1.jpg":        []byte("x"),
		"ComicInfo.xml": []byte(sampleComicInfo),
	}}
	book := BuildBook(c, BuildOptions{})

	clone, err := book.Clone()
	require.NoError(t, err)
	require.Len(t, clone.Pages, len(book.Pages))

	clone.Pages[0].BookmarkLabel = "mutated"
	assert.NotEqual(t, clone.Pages[0].BookmarkLabel, book.Pages[0].BookmarkLabel)
	assert.Equal(t, book.ComicInfo(), clone.ComicInfo())
}

func TestTitleFromPath(t *testing.T) {
	assert.Equal(t, "My Comic #1", TitleFromPath("/library/My Comic #1.cbz"))
	assert.Equal(t, "issue", TitleFromPath("issue.cbr"))
}
