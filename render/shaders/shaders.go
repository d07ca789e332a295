package shaders

import (
	_ "embed"
)

//go:embed primitive.wgsl
var PrimitiveWGSL string
