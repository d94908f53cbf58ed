// Copyright (c) 2018, Eugene Ponizovsky, <ponizovsky@gmail.com>. All rights
// reserved. Use of this source code is governed by a MIT License that can
// be found in the LICENSE file.

/*
Package libertyconf reads the configuration of a Liberty application server the
way the server itself does: it builds the layered variable set from server.env,
bootstrap.properties, system properties and variables directories, resolves
variable references in configuration attributes and walks server.xml with its
includes and configDropins directories to discover deployed applications and
enabled features.

 package main

 import (
   "context"
   "fmt"

   "github.com/iph0/libertyconf"
   "github.com/iph0/libertyconf/loaders/httploader"
 )

 func main() {
   scanner := libertyconf.NewScanner(
     libertyconf.Options{
       Dirs: libertyconf.Dirs{
         InstallDir: "/opt/wlp",
         ConfigDir:  "/opt/wlp/usr/servers/defaultServer",
       },

       Loaders: map[string]libertyconf.Loader{
         "http":  httploader.NewLoader(nil),
         "https": httploader.NewLoader(nil),
       },
     },
   )

   result, err := scanner.Scan(context.Background())

   if err != nil {
     fmt.Println("Scan failed:", err)
     return
   }

   fmt.Println(result.Locations, result.Features)
 }

Variables are referenced as ${name} in configuration attributes. A name is
looked up in predefined directory properties (wlp.install.dir,
server.config.dir and so on), then in properties, then in variable default
values. If nothing is found, the name with non-alphanumeric characters replaced
by "_" is tried, then the same name in upper case, and finally, for names
starting with "env.", the name without the prefix. For example, with
server.env containing

 APP_HOME=/srv/apps

all of ${APP_HOME}, ${app.home} and ${env.APP_HOME} resolve to "/srv/apps".

An attribute that references an undefined variable, or a variable that refers
back to itself, can not be resolved at all; the scanner keeps the literal text
in that case.

Values of server.env are expanded the way server scripts do it: ${NAME} on Unix
and !NAME! on Windows. Here unknown variables and circular references are left
in place and expansion stops after five nested variables.

Properties are layered in this order, later layers overriding earlier ones:

 1. <install>/etc/server.env, <user>/shared/server.env, <config>/server.env
 2. <config>/bootstrap.properties and files referenced by bootstrap.include
 3. system properties
 4. <config>/variables, or the directories listed in VARIABLE_SOURCE_DIRS

Values declared with <variable name="..." value="..."/> never override the
layers above. Values declared with defaultValue are used only when no layer
defines the variable.
*/
package libertyconf
