package utils

import (
	"reflect"
	"strings"
)

type DBTag struct {
	Column        string
	ReadOnly      bool
	PrimaryKey    bool
	AutoIncrement bool
	JSON          bool
}

// ParseTag reads the `db` struct tag. The first segment is the column name,
// the remaining segments are flags. A column of "-" or an empty tag means the
// field is not mapped.
func ParseTag(tagString reflect.StructTag) DBTag {
	parts := strings.Split(tagString.Get("db"), ",")

	tag := DBTag{}

	for i, part := range parts {
		part = strings.TrimSpace(part)

		if i == 0 {
			if part != "-" {
				tag.Column = part
			}

			continue
		}

		switch part {
		case "readOnly":
			tag.ReadOnly = true
		case "primaryKey":
			tag.PrimaryKey = true
		case "autoIncrement":
			tag.AutoIncrement = true
		case "json":
			tag.JSON = true
		}
	}

	return tag
}
