// Command orgsync reconciles employee batches and inspects chains of
// command from the command line.
package main

func main() {
	Execute()
}
