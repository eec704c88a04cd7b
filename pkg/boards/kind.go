package boards

import "encoding/json"

// Kind identifies the structural shape of a column value's payload.
type Kind int

// Column payload kinds, detected from payload shape. KindText is the
// declared fallback for empty, scalar, or unrecognized payloads.
const (
	KindText Kind = iota
	KindLink
	KindEmail
	KindPhone
	KindDate
	KindStatus
	KindDropdown
	KindLocation
	KindRelation
	KindFile
	KindNumeric
)

// String returns the kind name as the board API spells column types.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindLink:
		return "link"
	case KindEmail:
		return "email"
	case KindPhone:
		return "phone"
	case KindDate:
		return "date"
	case KindStatus:
		return "status"
	case KindDropdown:
		return "dropdown"
	case KindLocation:
		return "location"
	case KindRelation:
		return "board-relation"
	case KindFile:
		return "file"
	case KindNumeric:
		return "numbers"
	default:
		return "unknown"
	}
}

// LinkValue is the payload of a link column.
type LinkValue struct {
	URL  string `json:"url"`
	Text string `json:"text"`
}

// EmailValue is the payload of an email column.
type EmailValue struct {
	Email string `json:"email"`
	Text  string `json:"text"`
}

// PhoneValue is the payload of a phone column.
type PhoneValue struct {
	Phone            string `json:"phone"`
	CountryShortName string `json:"countryShortName"`
}

// DateValue is the payload of a date column.
type DateValue struct {
	Date string `json:"date"`
	Time string `json:"time,omitempty"`
}

// StatusValue is the payload of a status column.
type StatusValue struct {
	Index int `json:"index"`
}

// DropdownValue is the payload of a dropdown column. IDs reference the
// column's option set; Labels is used when writing by label.
type DropdownValue struct {
	IDs    []int    `json:"ids,omitempty"`
	Labels []string `json:"labels,omitempty"`
}

// LocationValue is the payload of a location column.
type LocationValue struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address,omitempty"`
}

// LinkedItem is one linked record reference inside a relation payload.
type LinkedItem struct {
	LinkedPulseID int64 `json:"linkedPulseId"`
}

// RelationValue is the payload of a board-relation column.
type RelationValue struct {
	LinkedPulseIDs []LinkedItem `json:"linkedPulseIds"`
}

// FileEntry is one attachment inside a file payload.
type FileEntry struct {
	AssetID json.Number `json:"assetId"`
	Name    string      `json:"name"`
}

// FileValue is the payload of a file column.
type FileValue struct {
	Files []FileEntry `json:"files"`
}

// Decoded is the tagged decode of a column payload. Exactly the field
// matching Kind is populated; everything else is nil.
type Decoded struct {
	Kind     Kind
	Link     *LinkValue
	Email    *EmailValue
	Phone    *PhoneValue
	Date     *DateValue
	Status   *StatusValue
	Dropdown *DropdownValue
	Location *LocationValue
	Relation *RelationValue
	File     *FileValue
}

// probe mirrors every discriminating key the payload shapes use, so the
// payload is parsed once and dispatched on which keys were present.
type probe struct {
	URL            *string      `json:"url"`
	Text           *string      `json:"text"`
	Email          *string      `json:"email"`
	Phone          *string      `json:"phone"`
	Date           *string      `json:"date"`
	Time           *string      `json:"time"`
	Index          *int         `json:"index"`
	IDs            []int        `json:"ids"`
	Lat            *float64     `json:"lat"`
	Lng            *float64     `json:"lng"`
	Address        *string      `json:"address"`
	LinkedPulseIDs []LinkedItem `json:"linkedPulseIds"`
	Files          []FileEntry  `json:"files"`
	CountryShort   *string      `json:"countryShortName"`
}

// Decode inspects a column value's payload and returns its tagged variant.
// Empty payloads, bare scalars, and unrecognized objects all decode as
// KindText: the display text is then the only usable content.
func (cv *ColumnValue) Decode() Decoded {
	if cv == nil || len(cv.Value) == 0 || string(cv.Value) == "null" {
		return Decoded{Kind: KindText}
	}

	var p probe
	if err := json.Unmarshal(cv.Value, &p); err != nil {
		return Decoded{Kind: KindText}
	}

	switch {
	case p.URL != nil && p.Text != nil:
		return Decoded{Kind: KindLink, Link: &LinkValue{URL: *p.URL, Text: *p.Text}}
	case p.Email != nil:
		ev := &EmailValue{Email: *p.Email}
		if p.Text != nil {
			ev.Text = *p.Text
		}
		return Decoded{Kind: KindEmail, Email: ev}
	case p.Phone != nil:
		pv := &PhoneValue{Phone: *p.Phone}
		if p.CountryShort != nil {
			pv.CountryShortName = *p.CountryShort
		}
		return Decoded{Kind: KindPhone, Phone: pv}
	case p.Date != nil:
		dv := &DateValue{Date: *p.Date}
		if p.Time != nil {
			dv.Time = *p.Time
		}
		return Decoded{Kind: KindDate, Date: dv}
	case p.Lat != nil && p.Lng != nil:
		lv := &LocationValue{Lat: *p.Lat, Lng: *p.Lng}
		if p.Address != nil {
			lv.Address = *p.Address
		}
		return Decoded{Kind: KindLocation, Location: lv}
	case p.LinkedPulseIDs != nil:
		return Decoded{Kind: KindRelation, Relation: &RelationValue{LinkedPulseIDs: p.LinkedPulseIDs}}
	case p.IDs != nil:
		return Decoded{Kind: KindDropdown, Dropdown: &DropdownValue{IDs: p.IDs}}
	case p.Index != nil:
		return Decoded{Kind: KindStatus, Status: &StatusValue{Index: *p.Index}}
	case p.Files != nil:
		return Decoded{Kind: KindFile, File: &FileValue{Files: p.Files}}
	default:
		return Decoded{Kind: KindText}
	}
}
