// Copyright 2011 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package symtab

import "fmt"

// Kind enumerates the categories of symbols the declaration recognizer
// records.  Lookups can be filtered to a single Kind.
type Kind int

// Kinds of program objects found in C and C++ source.
const (
	Unspecified  Kind = iota // No category; matches only unfiltered lookups
	TypeName                 // typedef names
	Tag                      // struct, union, enum and class tags
	Variable                 // Objects
	Function                 // Functions and prototypes
	Parameter                // Function parameters
	EnumConstant             // Enumerators
	Namespace                // C++ namespaces

	endKind // for testing
)

func (k Kind) String() string {
	switch k {
	case Unspecified:
		return "unspecified"
	case TypeName:
		return "type name"
	case Tag:
		return "tag"
	case Variable:
		return "variable"
	case Function:
		return "function"
	case Parameter:
		return "parameter"
	case EnumConstant:
		return "enumeration constant"
	case Namespace:
		return "namespace"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}
