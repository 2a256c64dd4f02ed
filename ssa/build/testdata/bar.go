package main

func bar(a []int) int {
	s := 0
	for i := range a {
		s += a[i]
	}
	return s
}
