package main

func foo(a []int) {
	for i := 0; i < len(a); i++ {
		a[i] = i
	}
}
