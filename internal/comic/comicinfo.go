// Package comic models comic books parsed from archive containers:
// metadata schemas, page ordering and the precedence rules between
// competing metadata sources.
package comic

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"

	"github.com/cedricziel/readwhere/internal/errors"
)

// ComicInfoFilename is the conventional name of the ComicRack metadata
// document inside an archive, matched case-insensitively.
const ComicInfoFilename = "ComicInfo.xml"

// ComicInfo is the ComicRack metadata schema. It is the richer of the
// two supported schemas and wins precedence when both parse.
type ComicInfo struct {
	XMLName xml.Name `xml:"ComicInfo"`

	Title           string `xml:"Title"`
	Series          string `xml:"Series"`
	Number          string `xml:"Number"`
	Count           int    `xml:"Count"`
	Volume          int    `xml:"Volume"`
	AlternateSeries string `xml:"AlternateSeries"`
	Summary         string `xml:"Summary"`
	Notes           string `xml:"Notes"`
	Year            int    `xml:"Year"`
	Month           int    `xml:"Month"`
	Day             int    `xml:"Day"`
	Writer          string `xml:"Writer"`
	Penciller       string `xml:"Penciller"`
	Inker           string `xml:"Inker"`
	Colorist        string `xml:"Colorist"`
	Letterer        string `xml:"Letterer"`
	CoverArtist     string `xml:"CoverArtist"`
	Editor          string `xml:"Editor"`
	Publisher       string `xml:"Publisher"`
	Imprint         string `xml:"Imprint"`
	Genre           string `xml:"Genre"`
	Tags            string `xml:"Tags"`
	Web             string `xml:"Web"`
	PageCount       int    `xml:"PageCount"`
	LanguageISO     string `xml:"LanguageISO"`
	Format          string `xml:"Format"`
	BlackAndWhite   string `xml:"BlackAndWhite"` // Unknown, No, Yes
	Manga           string `xml:"Manga"`         // Unknown, No, Yes, YesAndRightToLeft
	Characters      string `xml:"Characters"`
	Teams           string `xml:"Teams"`
	Locations       string `xml:"Locations"`
	ScanInformation string `xml:"ScanInformation"`
	StoryArc        string `xml:"StoryArc"`
	SeriesGroup     string `xml:"SeriesGroup"`
	AgeRating       string `xml:"AgeRating"`

	Pages []ComicInfoPage `xml:"Pages>Page"`
}

// ComicInfoPage is per-page metadata inside ComicInfo.xml. Image is the
// 0-based page index the record applies to.
type ComicInfoPage struct {
	Image       int    `xml:"Image,attr"`
	Type        string `xml:"Type,attr"`
	DoublePage  bool   `xml:"DoublePage,attr"`
	ImageSize   int64  `xml:"ImageSize,attr"`
	Key         string `xml:"Key,attr"`
	Bookmark    string `xml:"Bookmark,attr"`
	ImageWidth  int    `xml:"ImageWidth,attr"`
	ImageHeight int    `xml:"ImageHeight,attr"`
}

// ParseComicInfo parses a ComicInfo.xml document. Documents declared in
// a legacy charset (windows-1252 exports are common) are transcoded.
func ParseComicInfo(data []byte) (*ComicInfo, error) {
	var ci ComicInfo
	if err := decodeXML(data, &ci); err != nil {
		return nil, errors.Wrap(errors.KindFormat, "parse ComicInfo.xml", err)
	}
	return &ci, nil
}

// IsManga reports whether the Manga field is any "yes" variant.
func (ci *ComicInfo) IsManga() bool {
	return strings.HasPrefix(strings.ToLower(ci.Manga), "yes")
}

// IsRightToLeft reports the right-to-left reading direction variant.
func (ci *ComicInfo) IsRightToLeft() bool {
	return strings.EqualFold(ci.Manga, "YesAndRightToLeft")
}

// IsBlackAndWhite reports whether the book is flagged black and white.
func (ci *ComicInfo) IsBlackAndWhite() bool {
	return strings.EqualFold(ci.BlackAndWhite, "Yes")
}

// splitList splits a ComicRack comma-separated list field.
func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// decodeXML decodes with charset support for non-UTF8 declarations.
func decodeXML(data []byte, v any) error {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, err
		}
		return transform.NewReader(input, enc.NewDecoder()), nil
	}
	return dec.Decode(v)
}
