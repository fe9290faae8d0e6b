package odp

import (
	"fmt"

	"github.com/FocuswithJustin/PsalmSlides/core/paginate"
)

const namespaces = `xmlns:office="urn:oasis:names:tc:opendocument:xmlns:office:1.0"
  xmlns:style="urn:oasis:names:tc:opendocument:xmlns:style:1.0"
  xmlns:text="urn:oasis:names:tc:opendocument:xmlns:text:1.0"
  xmlns:draw="urn:oasis:names:tc:opendocument:xmlns:drawing:1.0"
  xmlns:fo="urn:oasis:names:tc:opendocument:xmlns:xsl-fo-compatible:1.0"
  xmlns:svg="urn:oasis:names:tc:opendocument:xmlns:svg-compatible:1.0"
  xmlns:presentation="urn:oasis:names:tc:opendocument:xmlns:presentation:1.0"`

// Style names shared by styles.xml and content.xml.
const (
	masterPage       = "Default"
	pageLayout       = "PM1"
	styleTitle       = "Title"
	styleVerse       = "P1"
	styleVerseIndent = "P2"
	styleClosing     = "T1"
)

const manifestXML = `<?xml version="1.0" encoding="UTF-8"?>
<manifest:manifest xmlns:manifest="urn:oasis:names:tc:opendocument:xmlns:manifest:1.0" manifest:version="1.2">
  <manifest:file-entry manifest:full-path="/" manifest:media-type="` + MimeType + `"/>
  <manifest:file-entry manifest:full-path="content.xml" manifest:media-type="text/xml"/>
  <manifest:file-entry manifest:full-path="styles.xml" manifest:media-type="text/xml"/>
</manifest:manifest>`

func stylesXML(layout paginate.Layout, opts Options) []byte {
	return []byte(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<office:document-styles %s office:version="1.2">
  <office:styles>
    <style:default-style style:family="paragraph">
      <style:text-properties fo:font-size="%gpt"/>
    </style:default-style>
    <style:style style:name="%s" style:family="paragraph">
      <style:paragraph-properties fo:text-align="center"/>
      <style:text-properties fo:font-size="%gpt" fo:font-weight="bold"/>
    </style:style>
  </office:styles>
  <office:automatic-styles>
    <style:page-layout style:name="%s">
      <style:page-layout-properties fo:page-width="%gin" fo:page-height="%gin" style:print-orientation="landscape"/>
    </style:page-layout>
  </office:automatic-styles>
  <office:master-styles>
    <style:master-page style:name="%s" style:page-layout-name="%s"/>
  </office:master-styles>
</office:document-styles>`,
		namespaces,
		layout.FontSizePt,
		styleTitle, layout.FontSizePt*1.5,
		pageLayout, opts.SlideWidthIn, layout.SlideHeightIn,
		masterPage, pageLayout,
	))
}
