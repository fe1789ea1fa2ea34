package entity

import (
	"fmt"
	"strings"
)

// Kind identifies one of the entity variants.
type Kind int

const (
	KindDrive Kind = iota + 1
	KindFolder
	KindTextFile
	KindZipFile
)

var kindNames = map[Kind]string{
	KindDrive:    "drive",
	KindFolder:   "folder",
	KindTextFile: "textfile",
	KindZipFile:  "zipfile",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// IsContainer reports whether entities of this kind can hold children.
func (k Kind) IsContainer() bool {
	return k == KindDrive || k == KindFolder || k == KindZipFile
}

// ParseKind parses a kind name, ignoring case.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "drive":
		return KindDrive, nil
	case "folder":
		return KindFolder, nil
	case "textfile":
		return KindTextFile, nil
	case "zipfile":
		return KindZipFile, nil
	}
	return 0, fmt.Errorf("%w: unknown entity kind %q", ErrInvalidType, s)
}
