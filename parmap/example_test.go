package parmap_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/utkarsh5026/parmap/parmap"
	"github.com/utkarsh5026/parmap/pool"
)

func ExampleMap() {
	it, err := parmap.Map(slices.Values([]int{1, 2, 3, 4, 5}), func(x int) int { return x * x })
	if err != nil {
		fmt.Println(err)
		return
	}

	squares, _ := parmap.Collect(it)
	slices.Sort(squares)
	fmt.Println(squares)
	// Output: [1 4 9 16 25]
}

func ExampleMapContext() {
	input := []string{"1", "2", "x", "4"}

	it, err := parmap.MapContext(context.Background(), slices.Values(input),
		func(_ context.Context, s string) (int, error) {
			return strconv.Atoi(s)
		},
		parmap.WithWorkers(2),
	)
	if err != nil {
		fmt.Println(err)
		return
	}

	failed := 0
	sum := 0
	for r := range it.All() {
		if r.Err != nil {
			var numErr *strconv.NumError
			if errors.As(r.Err, &numErr) {
				failed++
			}
			continue
		}
		sum += r.Value
	}
	fmt.Println(sum, failed)
	// Output: 7 1
}

func ExampleWithPool() {
	p, err := pool.New(4, pool.WithQueue(pool.QueueRing))
	if err != nil {
		fmt.Println(err)
		return
	}
	defer p.Shutdown(0)

	total := 0
	for _, batch := range [][]int{{1, 2}, {3, 4, 5}} {
		it, err := parmap.Map(slices.Values(batch), func(x int) int { return x * 10 }, parmap.WithPool(p))
		if err != nil {
			fmt.Println(err)
			return
		}
		vals, _ := parmap.Collect(it)
		for _, v := range vals {
			total += v
		}
	}
	fmt.Println(total)
	// Output: 150
}
