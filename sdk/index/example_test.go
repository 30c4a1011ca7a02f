package index_test

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/gabrielopesantos/recidx/sdk/bptree"
	"github.com/gabrielopesantos/recidx/sdk/index"
	"github.com/gabrielopesantos/recidx/sdk/record"
	"github.com/openbao/openbao/sdk/v2/logical"
)

func Example() {
	color.NoColor = true
	ctx := context.Background()

	store, err := record.NewLogicalStore(&logical.InmemStorage{}, nil, nil, nil)
	if err != nil {
		panic(err)
	}

	// Internal nodes fan out to 4 children, leaves hold up to 3 keys
	config := &index.Config{Tree: bptree.NewDefaultBPlusTreeConfig()}
	idx, err := index.Open(config, store, nil)
	if err != nil {
		panic(err)
	}

	students := []struct {
		id    int
		name  string
		age   int
		marks int
	}{
		{101, "Alice", 20, 85},
		{102, "Bob", 21, 90},
		{103, "Charlie", 19, 88},
		{104, "Diana", 22, 92},
		{105, "Eve", 20, 87},
	}
	for _, s := range students {
		payload := fmt.Sprintf("%s %d %d", s.name, s.age, s.marks)
		if err := idx.Put(ctx, s.id, []byte(payload)); err != nil {
			panic(err)
		}
	}

	_ = idx.Print(os.Stdout)

	payload, _ := idx.Get(ctx, 103)
	fmt.Println(string(payload))

	_ = idx.Delete(ctx, 102)
	_ = idx.PrintSequence(os.Stdout)

	// Output:
	// └── Internal [103]
	//     ├── Leaf [101 102]
	//     └── Leaf [103 104 105]
	// Charlie 19 88
	// 101 103 104 105
}
