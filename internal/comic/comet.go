package comic

import (
	"encoding/xml"
	"strings"

	"github.com/cedricziel/readwhere/internal/errors"
)

// CoMetFilename is the conventional name of the CoMet metadata document
// inside an archive, matched case-insensitively.
const CoMetFilename = "CoMet.xml"

// CoMet is the CoMet metadata schema (denvog.com/comet). It is the
// simpler of the two supported schemas: flat fields, no per-page
// records. When ComicInfo.xml also parses, CoMet is retained as a
// secondary reference only.
type CoMet struct {
	XMLName xml.Name `xml:"comet"`

	Title            string   `xml:"title"`
	Description      string   `xml:"description"`
	Series           string   `xml:"series"`
	Issue            string   `xml:"issue"`
	Volume           int      `xml:"volume"`
	Publisher        string   `xml:"publisher"`
	Date             string   `xml:"date"`
	Genres           []string `xml:"genre"`
	Characters       []string `xml:"character"`
	Writer           string   `xml:"writer"`
	Penciller        string   `xml:"penciller"`
	Creator          string   `xml:"creator"`
	Language         string   `xml:"language"`
	Format           string   `xml:"format"`
	Rights           string   `xml:"rights"`
	Identifier       string   `xml:"identifier"`
	Pages            int      `xml:"pages"`
	CoverImage       string   `xml:"coverImage"`
	ReadingDirection string   `xml:"readingDirection"` // ltr or rtl
}

// ParseCoMet parses a CoMet.xml document.
func ParseCoMet(data []byte) (*CoMet, error) {
	var cm CoMet
	if err := decodeXML(data, &cm); err != nil {
		return nil, errors.Wrap(errors.KindFormat, "parse CoMet.xml", err)
	}
	return &cm, nil
}

// IsRightToLeft reports whether the declared reading direction is rtl.
func (cm *CoMet) IsRightToLeft() bool {
	return strings.EqualFold(cm.ReadingDirection, "rtl")
}
