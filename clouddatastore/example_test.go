package clouddatastore_test

import (
	"context"
	"fmt"

	"go.kotori.dev/arbor"
	"go.kotori.dev/arbor/clouddatastore"
)

func ExampleNew() {
	ctx := context.Background()
	client, err := clouddatastore.New(ctx, arbor.WithProjectID("my-project"))
	if err != nil {
		panic(err)
	}
	defer client.Close()

	key := client.NameKey("Memo", "m1", nil)
	_, err = client.Put(ctx, key, arbor.PropertyList{
		{Name: "Body", Value: "remember the milk"},
	})
	if err != nil {
		panic(err)
	}

	ps, err := client.Get(ctx, key)
	if err != nil {
		panic(err)
	}

	body, _ := ps.Value("Body")
	fmt.Println(body)
}
