// Command envmap converts omnidirectional environment maps between the
// angular, skyangular and latlong projections.
package main

func main() {
	Execute()
}
