package memory

import (
	"testing"

	"github.com/arborlabs/arbor/pkg/ports"
)

func TestStore_Contract(t *testing.T) {
	ports.RunStoreContract(t, NewStore())
}
