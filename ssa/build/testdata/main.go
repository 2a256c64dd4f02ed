package main

import "fmt"

func main() {
	a := make([]int, 10)
	foo(a)
	fmt.Println(bar(a))
}
