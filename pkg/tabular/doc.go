/*
Package tabular builds a story graph from a row-oriented, comma separated
text format.

The first non-blank row is a header naming the columns. Columns are looked up
by name, so authors may reorder or add columns freely. A row whose first cell
begins with the marker ("#" by default) opens a new node block; the rows that
follow, up to the next marker row, belong to the same node. This lets a single
node span many rows (several characters, dialog lines or choices) while
keeping one fact per row.

	#,type,nodeId,nextNodeId,backgroundId,character,position,speaker,content,questionText,choices,choiceNext
	#,DialogNode,start,pick,BG_Grey,Ch_usagi,"-800, -100",Usagi,Nice weather today!,,,
	,,,,,Ch_hachi,"800, -100",Hachi,Shall we go?,,,
	#,ChoiceNode,pick,,BG_Red,,,,,Where to?,Forest,forest
	,,,,,,,,,,Home,home

Malformed input never aborts a build: offending rows or blocks are skipped and
reported as structural diagnostics.
*/
package tabular
