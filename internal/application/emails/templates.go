package emails

import (
	"fmt"
	"strings"
)

func solicitudRecibidaContent(nombre, escuela string) string {
	return fmt.Sprintf(`
    <h1>Hola, %s</h1>
    <p>Recibimos tu solicitud de registro en <strong>%s</strong>.</p>
    <p>Un administrador la revisará pronto. Te escribiremos a este correo cuando haya una decisión.</p>
`, EscapeHTML(nombre), EscapeHTML(escuela))
}

func credencialesContent(nombre, escuela, portalURL string, cuentas []Cuenta) string {
	var rows strings.Builder
	for _, c := range cuentas {
		fmt.Fprintf(&rows, `
      <tr><td>%s</td><td>%s</td><td><code>%s</code></td><td><code>%s</code></td></tr>`,
			EscapeHTML(c.Nombre), EscapeHTML(c.TipoCuenta), EscapeHTML(c.Username), EscapeHTML(c.Password))
	}
	tabla := `<p>Tus cuentas existentes se mantienen; los estudiantes quedaron vinculados a ellas.</p>`
	if len(cuentas) > 0 {
		tabla = fmt.Sprintf(`
    <table class="credenciales" width="100%%">
      <tr><td><strong>Nombre</strong></td><td><strong>Tipo</strong></td><td><strong>Usuario</strong></td><td><strong>Contraseña</strong></td></tr>%s
    </table>
    <p style="margin-top:20px;">Te recomendamos cambiar las contraseñas al ingresar por primera vez.</p>`, rows.String())
	}
	return fmt.Sprintf(`
    <h1>¡Bienvenido, %s!</h1>
    <p>Tu solicitud de registro en <strong>%s</strong> fue aprobada.</p>
    %s
    <center>
      <a href="%s" class="boton">Ingresar al portal</a>
    </center>
`, EscapeHTML(nombre), EscapeHTML(escuela), tabla, EscapeHTML(portalURL+"/login"))
}

func rechazoContent(nombre, escuela, motivo string) string {
	return fmt.Sprintf(`
    <h1>Hola, %s</h1>
    <p>Tu solicitud de registro en <strong>%s</strong> fue rechazada.</p>
    <p><strong>Motivo:</strong> %s</p>
    <p>Si crees que se trata de un error, comunícate con la escuela.</p>
`, EscapeHTML(nombre), EscapeHTML(escuela), EscapeHTML(motivo))
}
