package contracts

import "github.com/meysamhadeli/codewatch/code_analyzer/models"

type IChangeDetector interface {
	Record(path string, content []byte) (*models.DiffRecord, error)
	RecordFile(path string) (*models.DiffRecord, error)
	Baseline(path string) (string, bool)
}
