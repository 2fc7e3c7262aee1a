package wrapped

import "strings"

// Row is one participant record from the row store: raw header names mapped to
// cell values. Header spellings drifted across signup form revisions, so every
// semantic field is read through an ordered alias list instead of a fixed key.
type Row map[string]string

var (
	handleAliases = []string{"andrew id", "andrewid", "andrew_id", "handle", "username"}
	emailAliases  = []string{"email", "email address", "andrew email", "school email"}
	nameAliases   = []string{"name", "full name", "display name", "preferred name"}

	matchHandleAliases = []string{"match andrew id", "match andrewid", "match handle", "match id"}
	matchNameAliases   = []string{"match name", "match full name", "matched with", "match"}

	ageAliases         = []string{"age", "your age"}
	genderAliases      = []string{"gender", "gender identity"}
	preferenceAliases  = []string{"preference", "interested in", "looking for"}
	majorMinorAliases  = []string{"major/minor", "major and minor", "major", "major minor"}
	hometownAliases    = []string{"hometown", "home town", "where are you from"}
	hobbiesAliases     = []string{"hobbies", "hobbies/interests", "interests", "what are your hobbies"}
	personalityAliases = []string{"personality type", "personality", "mbti", "16 personalities"}
	idealDateAliases   = []string{"ideal first date", "ideal date", "dream date"}
	funFactAliases     = []string{"fun fact", "a fun fact about you", "fun fact about you"}
)

// NormalizeHandle lowercases, trims, and strips a trailing email-domain suffix
// so "Jdoe@Example.com" and "jdoe" compare equal.
func NormalizeHandle(raw string) string {
	handle := strings.ToLower(strings.TrimSpace(raw))
	if at := strings.Index(handle, "@"); at >= 0 {
		handle = handle[:at]
	}
	return handle
}

// NormalizeDisplayName lowercases and trims. Used only as the fallback join
// key when a match was recorded by name instead of handle.
func NormalizeDisplayName(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func normalizeKey(key string) string {
	return strings.Join(strings.Fields(strings.ToLower(key)), " ")
}

// ResolveField returns the first non-empty value among the accepted header
// spellings for a semantic field, or "" when none is present. When header
// drift left several raw spellings of the same alias in one row, the
// lexicographically smallest raw key wins so the result is stable across runs.
func ResolveField(row Row, candidateKeys []string) string {
	for _, want := range candidateKeys {
		var bestKey, bestValue string
		for key, value := range row {
			if normalizeKey(key) != want {
				continue
			}
			trimmed := strings.TrimSpace(value)
			if trimmed == "" {
				continue
			}
			if bestKey == "" || key < bestKey {
				bestKey, bestValue = key, trimmed
			}
		}
		if bestValue != "" {
			return bestValue
		}
	}
	return ""
}

func candidateHandles(row Row) []string {
	var handles []string
	if own := ResolveField(row, handleAliases); own != "" {
		handles = append(handles, NormalizeHandle(own))
	}
	if email := ResolveField(row, emailAliases); email != "" {
		handles = append(handles, NormalizeHandle(email))
	}
	return handles
}

// FindRowByHandle returns the first row whose candidate handle set contains
// the normalized target. Row order is whatever the store supplied; first
// match wins when handles collide.
func FindRowByHandle(rows []Row, handle string) (Row, bool) {
	target := NormalizeHandle(handle)
	if target == "" {
		return nil, false
	}
	for _, row := range rows {
		for _, candidate := range candidateHandles(row) {
			if candidate == target {
				return row, true
			}
		}
	}
	return nil, false
}

func findRowByName(rows []Row, name string) (Row, bool) {
	target := NormalizeDisplayName(name)
	if target == "" {
		return nil, false
	}
	for _, row := range rows {
		if NormalizeDisplayName(ResolveField(row, nameAliases)) == target {
			return row, true
		}
	}
	return nil, false
}

// ResolveMatchRow locates the viewer's declared match: by recorded handle
// first, then by free-text name. Absence is not an error; callers fall back
// to a stub participant.
func ResolveMatchRow(viewerRow Row, rows []Row) (Row, bool) {
	if handle := ResolveField(viewerRow, matchHandleAliases); handle != "" {
		if row, ok := FindRowByHandle(rows, handle); ok {
			return row, true
		}
	}
	if name := ResolveField(viewerRow, matchNameAliases); name != "" {
		if row, ok := findRowByName(rows, name); ok {
			return row, true
		}
	}
	return nil, false
}

// Participant is a resolved view of one row, with every field already run
// through alias resolution.
type Participant struct {
	Handle      string `json:"handle"`
	Name        string `json:"name"`
	Age         string `json:"age"`
	Gender      string `json:"gender"`
	Preference  string `json:"preference"`
	MajorMinor  string `json:"major_minor"`
	Hometown    string `json:"hometown"`
	Hobbies     string `json:"hobbies"`
	Personality string `json:"personality"`
	IdealDate   string `json:"ideal_date"`
	FunFact     string `json:"fun_fact"`
}

const undisclosed = "Undisclosed"

// UnknownParticipant is the single fallback record used whenever a lookup
// fails. The reveal must always render something for a ticket holder.
var UnknownParticipant = Participant{
	Name:        "Mystery Guest",
	Age:         undisclosed,
	Gender:      undisclosed,
	Preference:  undisclosed,
	MajorMinor:  undisclosed,
	Hometown:    undisclosed,
	Hobbies:     "",
	Personality: undisclosed,
	IdealDate:   undisclosed,
	FunFact:     undisclosed,
}

// StubParticipant carries whatever identity was on file for an unresolvable
// match, with placeholder detail fields.
func StubParticipant(name, handle string) Participant {
	p := UnknownParticipant
	if strings.TrimSpace(name) != "" {
		p.Name = strings.TrimSpace(name)
	}
	p.Handle = NormalizeHandle(handle)
	return p
}

// ParticipantFromRow resolves every semantic field of a row. Missing fields
// come back as the placeholder value so cards never render empty.
func ParticipantFromRow(row Row) Participant {
	p := Participant{
		Handle:      NormalizeHandle(ResolveField(row, handleAliases)),
		Name:        ResolveField(row, nameAliases),
		Age:         orPlaceholder(ResolveField(row, ageAliases)),
		Gender:      orPlaceholder(ResolveField(row, genderAliases)),
		Preference:  orPlaceholder(ResolveField(row, preferenceAliases)),
		MajorMinor:  orPlaceholder(ResolveField(row, majorMinorAliases)),
		Hometown:    orPlaceholder(ResolveField(row, hometownAliases)),
		Hobbies:     ResolveField(row, hobbiesAliases),
		Personality: orPlaceholder(ResolveField(row, personalityAliases)),
		IdealDate:   orPlaceholder(ResolveField(row, idealDateAliases)),
		FunFact:     orPlaceholder(ResolveField(row, funFactAliases)),
	}
	if p.Handle == "" {
		if email := ResolveField(row, emailAliases); email != "" {
			p.Handle = NormalizeHandle(email)
		}
	}
	if p.Name == "" {
		p.Name = UnknownParticipant.Name
	}
	return p
}

func orPlaceholder(value string) string {
	if value == "" {
		return undisclosed
	}
	return value
}
