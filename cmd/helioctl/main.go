// Command helioctl renders tiles, composites and movies from a catalog without the http api
package main

func main() { Execute() }
