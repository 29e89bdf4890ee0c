package users

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/2beens/fitnesstracker/internal/docstore"
	"github.com/2beens/fitnesstracker/internal/payload"
)

// Capitalize upper-cases the first letter and lower-cases the rest.
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	first, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(first)) + strings.ToLower(s[size:])
}

func capitalizeNames(data map[string]any) {
	for _, key := range []string{"firstName", "lastName"} {
		if name, ok := data[key].(string); ok && name != "" {
			data[key] = Capitalize(name)
		}
	}
}

// prepareNew fills the defaults of a new profile. Clients can never make
// themselves admins.
func prepareNew(data map[string]any) {
	data["createdAt"] = docstore.ServerTimestamp
	data["updatedAt"] = docstore.ServerTimestamp
	capitalizeNames(data)

	if _, ok := data["bio"]; !ok {
		data["bio"] = ""
	}
	if _, ok := data["imageUrl"]; !ok {
		data["imageUrl"] = ""
	}
	data["isAdmin"] = false
	if !payload.Field(data, "gender").IsSet() {
		data["gender"] = "N/A"
	}
}

func prepareUpdate(data map[string]any) {
	delete(data, "isAdmin")
	data["updatedAt"] = docstore.ServerTimestamp
	capitalizeNames(data)
}
