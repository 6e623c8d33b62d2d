package analytics

import (
	"fmt"

	"github.com/kpiplatform/backend/internal/domain/shared"
)

// Upload errors. Both abort the upload before anything is written.
var (
	ErrClassificationMismatch = shared.NewDomainError("CLASSIFICATION_MISMATCH", "Uploaded file does not match the expected document type")
	ErrStructuralFailure      = shared.NewDomainError("STRUCTURAL_FAILURE", "Uploaded file layout could not be read")
)

// NewClassificationMismatch names the rejected file and the classifier reason
func NewClassificationMismatch(filename, reason string) error {
	return shared.NewDomainError(ErrClassificationMismatch.Code, fmt.Sprintf("%s: %s", filename, reason))
}

// NewStructuralFailure names the file whose layout could not be extracted
func NewStructuralFailure(filename string, cause error) error {
	return shared.NewDomainError(ErrStructuralFailure.Code, fmt.Sprintf("%s: %v", filename, cause))
}
