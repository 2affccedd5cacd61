// Package repository provides the table gateway the CMS stores are built on:
// typed lookups, ordered listing, pagination, dialect aware upserts and
// transaction binding over Bun.
package repository
