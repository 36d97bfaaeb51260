package whatsapp

import "fmt"

type MessageType string

const (
	TypeText     MessageType = "text"
	TypeImage    MessageType = "image"
	TypeVideo    MessageType = "video"
	TypeAudio    MessageType = "audio"
	TypeDocument MessageType = "document"
	TypeSticker  MessageType = "sticker"
	TypeLocation MessageType = "location"
	TypeContact  MessageType = "contact"
	TypeUnknown  MessageType = "unknown"
)

type LocationMetadata struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name,omitempty"`
	Address   string  `json:"address,omitempty"`
	MapsURL   string  `json:"maps_url"`
}

type StickerMetadata struct {
	IsAnimated bool   `json:"is_animated"`
	Mimetype   string `json:"mimetype,omitempty"`
}

// Classification is the storage-ready view of a raw message payload.
type Classification struct {
	Type          MessageType
	Content       string
	MediaURL      string
	MediaMimeType string
	MediaSize     int64
	FileName      string
	QuotedID      string
	Location      *LocationMetadata
	Sticker       *StickerMetadata
}

// Classify maps a provider payload to its stored type, display content and
// media/quote metadata. Deterministic: when several variant fields are
// populated the first match in priority order wins (text beats media, media
// beats location and contact). A nil or empty payload classifies as unknown.
func Classify(p *MessagePayload) Classification {
	c := Classification{Type: TypeUnknown}
	if p == nil {
		return c
	}

	c.QuotedID = quotedID(p)
	if loc := p.LocationMessage; loc != nil {
		c.Location = &LocationMetadata{
			Latitude:  loc.DegreesLatitude,
			Longitude: loc.DegreesLongitude,
			Name:      loc.Name,
			Address:   loc.Address,
			MapsURL:   mapsURL(loc),
		}
	}

	switch {
	case p.Conversation != "":
		c.Type = TypeText
		c.Content = p.Conversation

	case p.ExtendedTextMessage != nil:
		c.Type = TypeText
		c.Content = p.ExtendedTextMessage.Text

	case p.ImageMessage != nil:
		c.Type = TypeImage
		c.Content = captionOr(p.ImageMessage.Caption, "📷 Image")
		c.MediaURL = p.ImageMessage.URL
		c.MediaMimeType = p.ImageMessage.Mimetype
		c.MediaSize = p.ImageMessage.FileLength.Int64()

	case p.VideoMessage != nil:
		c.Type = TypeVideo
		c.Content = captionOr(p.VideoMessage.Caption, "🎥 Video")
		c.MediaURL = p.VideoMessage.URL
		c.MediaMimeType = p.VideoMessage.Mimetype
		c.MediaSize = p.VideoMessage.FileLength.Int64()

	case p.AudioMessage != nil:
		c.Type = TypeAudio
		c.Content = "🎵 Audio"
		c.MediaURL = p.AudioMessage.URL
		c.MediaMimeType = p.AudioMessage.Mimetype
		c.MediaSize = p.AudioMessage.FileLength.Int64()

	case p.DocumentMessage != nil:
		c.Type = TypeDocument
		c.FileName = p.DocumentMessage.FileName
		if c.FileName != "" {
			c.Content = "📄 " + c.FileName
		} else {
			c.Content = "📄 Document"
		}
		c.MediaURL = p.DocumentMessage.URL
		c.MediaMimeType = p.DocumentMessage.Mimetype
		c.MediaSize = p.DocumentMessage.FileLength.Int64()

	case p.StickerMessage != nil:
		c.Type = TypeSticker
		c.Content = "🎨 Sticker"
		c.MediaURL = p.StickerMessage.URL
		c.MediaMimeType = p.StickerMessage.Mimetype
		c.MediaSize = p.StickerMessage.FileLength.Int64()
		c.Sticker = &StickerMetadata{
			IsAnimated: p.StickerMessage.IsAnimated,
			Mimetype:   p.StickerMessage.Mimetype,
		}

	case p.LocationMessage != nil:
		c.Type = TypeLocation
		if p.LocationMessage.Name != "" {
			c.Content = "📍 " + p.LocationMessage.Name
		} else {
			c.Content = "📍 Location"
		}

	case p.ContactMessage != nil:
		c.Type = TypeContact
		if p.ContactMessage.DisplayName != "" {
			c.Content = "👤 " + p.ContactMessage.DisplayName
		} else {
			c.Content = "👤 Contact"
		}
	}

	return c
}

func quotedID(p *MessagePayload) string {
	var ci *ContextInfo
	switch {
	case p.ExtendedTextMessage != nil:
		ci = p.ExtendedTextMessage.ContextInfo
	case p.ImageMessage != nil:
		ci = p.ImageMessage.ContextInfo
	case p.VideoMessage != nil:
		ci = p.VideoMessage.ContextInfo
	case p.DocumentMessage != nil:
		ci = p.DocumentMessage.ContextInfo
	case p.AudioMessage != nil:
		ci = p.AudioMessage.ContextInfo
	}
	if ci == nil {
		return ""
	}
	return ci.StanzaID
}

func mapsURL(loc *LocationMessage) string {
	if loc.URL != "" {
		return loc.URL
	}
	return fmt.Sprintf("https://www.google.com/maps?q=%f,%f", loc.DegreesLatitude, loc.DegreesLongitude)
}

func captionOr(caption, fallback string) string {
	if caption != "" {
		return caption
	}
	return fallback
}
