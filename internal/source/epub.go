package source

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/taylorskalyo/goreader/epub"
	"golang.org/x/net/html"
)

// parseEPUB walks the spine of the first rootfile in reading order.
// Each spine document is split at its headings; documents without any
// heading borrow their title from the NCX table of contents.
func parseEPUB(bookPath string) ([]Chapter, string, error) {
	rc, err := epub.OpenReader(bookPath)
	if err != nil {
		return nil, "", fmt.Errorf("open epub: %w", err)
	}
	defer rc.Close()

	if len(rc.Rootfiles) == 0 {
		return nil, "", errors.New("epub has no rootfile")
	}
	book := rc.Rootfiles[0]

	tocTitles, bookTitle := ncxTitles(bookPath, book)

	var chapters []Chapter
	for _, ref := range book.Spine.Itemrefs {
		if ref.Item == nil {
			continue
		}
		section, err := spineChapters(ref.Item)
		if err != nil {
			log.Warn("skipping unreadable epub section", "href", ref.Item.HREF, "err", err)
			continue
		}
		if len(section) > 0 && section[0].Title == "" {
			section[0].Title = tocTitle(tocTitles, ref.Item.HREF)
		}
		chapters = append(chapters, section...)
	}
	return chapters, bookTitle, nil
}

func spineChapters(item *epub.Item) ([]Chapter, error) {
	r, err := item.Open()
	if err != nil {
		return nil, err
	}
	defer r.Close()

	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	return chaptersFromHTML(root), nil
}

// NCX structures, enough of the navigation document to map spine
// hrefs to human titles.
type ncx struct {
	DocTitle struct {
		Text string `xml:"text"`
	} `xml:"docTitle"`
	NavMap struct {
		NavPoints []navPoint `xml:"navPoint"`
	} `xml:"navMap"`
}

type navPoint struct {
	Label struct {
		Text string `xml:"text"`
	} `xml:"navLabel"`
	Content struct {
		Src string `xml:"src,attr"`
	} `xml:"content"`
	Children []navPoint `xml:"navPoint"`
}

// ncxTitles reads the NCX and returns an href-to-title map plus the
// book title. EPUBs without an NCX get empty results and the spine
// falls back to numbered sections.
func ncxTitles(bookPath string, book *epub.Rootfile) (map[string]string, string) {
	titles := make(map[string]string)

	data, err := readNCX(bookPath, book)
	if err != nil {
		log.Debug("no usable ncx in epub", "err", err)
		return titles, ""
	}

	var toc ncx
	if err := xml.Unmarshal(data, &toc); err != nil {
		log.Debug("malformed ncx in epub", "err", err)
		return titles, ""
	}

	var collect func(points []navPoint)
	collect = func(points []navPoint) {
		for _, np := range points {
			title := cleanParagraph(np.Label.Text)
			href := np.Content.Src
			if i := strings.Index(href, "#"); i >= 0 {
				href = href[:i]
			}
			if href != "" && title != "" {
				if _, seen := titles[href]; !seen {
					titles[href] = title
				}
				base := path.Base(href)
				if _, seen := titles[base]; !seen {
					titles[base] = title
				}
			}
			collect(np.Children)
		}
	}
	collect(toc.NavMap.NavPoints)

	return titles, cleanParagraph(toc.DocTitle.Text)
}

func tocTitle(titles map[string]string, href string) string {
	if t, ok := titles[href]; ok {
		return t
	}
	return titles[path.Base(href)]
}

// readNCX locates the navigation document inside the archive, first by
// its manifest media type, then by extension.
func readNCX(bookPath string, book *epub.Rootfile) ([]byte, error) {
	zr, err := zip.OpenReader(bookPath)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	var ncxPath string
	for _, item := range book.Manifest.Items {
		if item.MediaType == "application/x-dtbncx+xml" {
			ncxPath = item.HREF
			break
		}
	}
	if ncxPath == "" {
		for _, f := range zr.File {
			if strings.HasSuffix(strings.ToLower(f.Name), ".ncx") {
				ncxPath = f.Name
				break
			}
		}
	}
	if ncxPath == "" {
		return nil, errors.New("no ncx in archive")
	}

	// Manifest hrefs are relative to the rootfile, archive names are
	// not; match on suffix and basename.
	for _, f := range zr.File {
		if f.Name == ncxPath || strings.HasSuffix(f.Name, "/"+ncxPath) || path.Base(f.Name) == path.Base(ncxPath) {
			r, err := f.Open()
			if err != nil {
				return nil, err
			}
			defer r.Close()
			return io.ReadAll(r)
		}
	}
	return nil, fmt.Errorf("ncx %s not in archive", ncxPath)
}
