package conversion

import "errors"

var errEmptyArtifact = errors.New("conversion: backend returned no artifact")
