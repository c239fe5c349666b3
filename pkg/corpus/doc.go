/*
Package corpus stores named training sequences in a SQLite database and builds
markov chains from them.

A corpus is an ordered list of tokens plus the maximum order chains built from
it should use. Tokens are interned in a vocabulary table shared by every corpus
in the database. Only the training input is stored; chains are rebuilt in memory
from it whenever they are needed.
*/
package corpus
