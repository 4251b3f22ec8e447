// Package main provides the entry point for the tenderscan CLI.
//
// tenderscan crawls the Government e-Procurement System bulletin
// (web.pcc.gov.tw) for a search query, writes one CSV file per fiscal
// year, and aggregates the files into repeated-tender groups.
//
// Usage:
//
//	tenderscan fetch <query> [-t START,END]
//	tenderscan aggregate [-d dir]
//
// See --help for all available options.
package main

func main() {
	Execute()
}
