package orfl

import (
	"fmt"
	"path"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
)

func recurrentDraw(g *cgraph.Graph, tree *OnlineTree, nodeNumber int, parentNode *cgraph.Node) {
	currentNode, err := g.CreateNode(fmt.Sprint(nodeNumber))
	HandleError(err)

	if parentNode != nil {
		g.CreateEdge("", parentNode, currentNode)
	}

	currentNode.Set("label", tree.Nodes[nodeNumber].Stats.GraphDescription())
	if tree.Nodes[nodeNumber].IsLeaf() {
		currentNode.Set("shape", "box")
	} else {
		recurrentDraw(g, tree, tree.Nodes[nodeNumber].LeftIndex, currentNode)
		recurrentDraw(g, tree, tree.Nodes[nodeNumber].RightIndex, currentNode)
	}
}

//DrawGraph renders the tree structure as a graphviz graph for debugging.
func (tree *OnlineTree) DrawGraph() (*graphviz.Graphviz, *cgraph.Graph) {
	graphViz := graphviz.New()
	graph, err := graphViz.Graph()
	HandleError(err)

	recurrentDraw(graph, tree, 0, nil)

	return graphViz, graph
}

//RenderTrees dumps one picture per tree into the given directory.
func (forest *Forest) RenderTrees(dumpPrefix, figureType, picturesDirectory string) {
	graphvizType := map[string]graphviz.Format{
		"png": graphviz.PNG,
		"svg": graphviz.SVG,
		"jpg": graphviz.JPG,
	}[figureType]

	for graphInd, currentTree := range forest.Trees {
		filename := fmt.Sprintf("%s_%05d.%s", dumpPrefix, graphInd, figureType)
		graphViz, graph := currentTree.DrawGraph()
		HandleError(graphViz.RenderFilename(graph, graphvizType, path.Join(picturesDirectory, filename)))
	}
}
